package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MacroSubstitution(t *testing.T) {
	path := writeTestFile(t, `{
		"link": "https://example.org",
		"leaderboard_link": "https://example.org/board",
		"form": "https://example.org/form",
		"templates": {
			"IncludeBasic": ["Thanks! See {link} and the {leaderboard-link}. Bot: {bot-name}. Apply: {form}."]
		}
	}`)

	loader, err := Load(path, "race-of-sloths")
	require.NoError(t, err)

	got := loader.Render(driven.MsgIncludeBasic, nil)
	assert.Equal(t, "Thanks! See https://example.org and the https://example.org/board. Bot: race-of-sloths. Apply: https://example.org/form.", got)
}

func TestRender_VariableSubstitution(t *testing.T) {
	path := writeTestFile(t, `{
		"templates": {
			"CorrectNonzeroScoring": ["{user} scored {score} points on {pr}"]
		}
	}`)

	loader, err := Load(path, "bot")
	require.NoError(t, err)

	got := loader.Render(driven.MsgCorrectNonzeroScoring, map[string]string{
		"user":  "alice",
		"score": "8",
		"pr":    "owner/repo#1",
	})
	assert.Equal(t, "alice scored 8 points on owner/repo#1", got)
}

func TestRender_MissingVariableLeftVerbatim(t *testing.T) {
	path := writeTestFile(t, `{
		"templates": {
			"Pause": ["paused by {user}"]
		}
	}`)

	loader, err := Load(path, "bot")
	require.NoError(t, err)

	got := loader.Render(driven.MsgPause, nil)
	assert.Equal(t, "paused by {user}", got)
}

func TestRender_UnknownCategoryReturnsEmpty(t *testing.T) {
	path := writeTestFile(t, `{"templates": {}}`)

	loader, err := Load(path, "bot")
	require.NoError(t, err)

	assert.Equal(t, "", loader.Render(driven.MsgFinal, nil))
}

func TestRender_DeterministicWithInjectedRandSource(t *testing.T) {
	path := writeTestFile(t, `{
		"templates": {
			"Stale": ["variant-a", "variant-b", "variant-c"]
		}
	}`)

	loader, err := Load(path, "bot")
	require.NoError(t, err)
	loader.WithRandSource(func(n int) int { return 2 })

	got := loader.Render(driven.MsgStale, nil)
	assert.Equal(t, "variant-c", got)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), "bot")
	assert.Error(t, err)
}
