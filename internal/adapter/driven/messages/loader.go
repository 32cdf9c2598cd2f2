// Package messages implements the driven.MessageRenderer port by loading a
// JSON table of reply templates and rendering one with {var} brace
// substitution. The scheme is too simple to warrant a templating library.
package messages

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageRenderer = (*Loader)(nil)

// fileFormat is the on-disk JSON shape of MESSAGE_FILE: a handful of
// top-level macro values plus one array of template strings per category.
type fileFormat struct {
	Link            string                              `json:"link"`
	LeaderboardLink string                              `json:"leaderboard_link"`
	Form            string                              `json:"form"`
	Templates       map[driven.MessageCategory][]string `json:"templates"`
}

// Loader implements driven.MessageRenderer. Choice of template within a
// category is randomized via randIntn, which defaults to math/rand/v2 but
// can be swapped for a deterministic stub in tests.
type Loader struct {
	templates map[driven.MessageCategory][]string
	randIntn  func(n int) int
}

// Load reads path, applies the link/leaderboard-link/form/bot-name macro
// substitution to every template at load time (once, not per-render), and
// returns a ready-to-use Loader.
func Load(path, botName string) (*Loader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading message file %q: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("parsing message file %q: %w", path, err)
	}

	macros := map[string]string{
		"{link}":             ff.Link,
		"{leaderboard-link}": ff.LeaderboardLink,
		"{form}":             ff.Form,
		"{bot-name}":         botName,
	}

	templates := make(map[driven.MessageCategory][]string, len(ff.Templates))
	for category, variants := range ff.Templates {
		resolved := make([]string, len(variants))
		for i, v := range variants {
			resolved[i] = applyMacros(v, macros)
		}
		templates[category] = resolved
	}

	return &Loader{
		templates: templates,
		randIntn:  rand.IntN,
	}, nil
}

func applyMacros(s string, macros map[string]string) string {
	for macro, value := range macros {
		s = strings.ReplaceAll(s, macro, value)
	}
	return s
}

// WithRandSource overrides the random source used to pick among a
// category's template variants. Used by tests to make rendering
// deterministic.
func (l *Loader) WithRandSource(randIntn func(n int) int) *Loader {
	l.randIntn = randIntn
	return l
}

// Render picks a random template for category and substitutes every
// "{key}" placeholder with vars[key]. A placeholder with no matching
// variable is logged and left verbatim rather than erroring.
func (l *Loader) Render(category driven.MessageCategory, vars map[string]string) string {
	variants := l.templates[category]
	if len(variants) == 0 {
		return ""
	}

	template := variants[0]
	if len(variants) > 1 {
		template = variants[l.randIntn(len(variants))]
	}

	for key, value := range vars {
		template = strings.ReplaceAll(template, "{"+key+"}", value)
	}

	logLeftoverPlaceholders(category, template)
	return template
}

// logLeftoverPlaceholders warns about any "{var}" still present after
// substitution. The placeholder stays verbatim in the rendered text.
func logLeftoverPlaceholders(category driven.MessageCategory, rendered string) {
	rest := rendered
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			return
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			return
		}
		slog.Warn("messages: template variable left unsubstituted",
			"category", string(category),
			"placeholder", rest[open:open+end+1],
		)
		rest = rest[open+end+1:]
	}
}
