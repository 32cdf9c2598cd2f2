package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every env var Load() reads.
var allConfigKeys = []string{
	"WRITE_TOKEN",
	"READ_TOKENS",
	"LEDGER_CONTRACT",
	"LEDGER_ACCOUNT_ID",
	"LEDGER_SECRET_KEY",
	"LEDGER_MAINNET",
	"MESSAGE_FILE",
	"BOT_NAME",
	"LISTEN_ADDR",
	"EVENT_INTERVAL",
	"MAINTENANCE_INTERVAL",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
}

// isolateConfigEnv saves and unsets every config env var so tests don't
// inherit values from the host environment. t.Cleanup restores originals.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WRITE_TOKEN", "write-token")
	t.Setenv("READ_TOKENS", "read-a, read-b")
	t.Setenv("LEDGER_CONTRACT", "race-of-sloths.near")
	t.Setenv("LEDGER_ACCOUNT_ID", "sloth-bot.near")
	t.Setenv("LEDGER_SECRET_KEY", "ed25519:test-key")
	t.Setenv("MESSAGE_FILE", "/etc/slothbot/messages.json")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("LEDGER_MAINNET", "true")
	t.Setenv("BOT_NAME", "my-sloth")
	t.Setenv("LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("EVENT_INTERVAL", "30s")
	t.Setenv("MAINTENANCE_INTERVAL", "1h")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "write-token", cfg.WriteToken)
	assert.Equal(t, []string{"read-a", "read-b"}, cfg.ReadTokens)
	assert.Equal(t, "race-of-sloths.near", cfg.LedgerContract)
	assert.Equal(t, "sloth-bot.near", cfg.LedgerAccountID)
	assert.Equal(t, "ed25519:test-key", cfg.LedgerSecretKey)
	assert.True(t, cfg.LedgerMainnet)
	assert.Equal(t, "/etc/slothbot/messages.json", cfg.MessageFile)
	assert.Equal(t, "my-sloth", cfg.BotName)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.EventInterval)
	assert.Equal(t, time.Hour, cfg.MaintenanceInterval)
	assert.Equal(t, "bot-token", cfg.TelegramBotToken)
	assert.Equal(t, "12345", cfg.TelegramChatID)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.LedgerMainnet)
	assert.Equal(t, "race-of-sloths", cfg.BotName)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, 60*time.Second, cfg.EventInterval)
	assert.Equal(t, 60*time.Minute, cfg.MaintenanceInterval)
	assert.Empty(t, cfg.TelegramBotToken)
	assert.Empty(t, cfg.TelegramChatID)
}

func TestLoad_MaintenanceIntervalDefaultsOffConfiguredEventInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("EVENT_INTERVAL", "10s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.EventInterval)
	assert.Equal(t, 600*time.Second, cfg.MaintenanceInterval)
}

func TestLoad_MissingWriteToken(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("WRITE_TOKEN")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRITE_TOKEN")
}

func TestLoad_MissingReadTokens(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("READ_TOKENS")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ_TOKENS")
}

func TestLoad_ReadTokensAllBlank(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("READ_TOKENS", " , ,")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ_TOKENS")
}

func TestLoad_MissingLedgerContract(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("LEDGER_CONTRACT")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_CONTRACT")
}

func TestLoad_MissingLedgerAccountID(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("LEDGER_ACCOUNT_ID")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_ACCOUNT_ID")
}

func TestLoad_MissingLedgerSecretKey(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("LEDGER_SECRET_KEY")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_SECRET_KEY")
}

func TestLoad_MissingMessageFile(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	os.Unsetenv("MESSAGE_FILE")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MESSAGE_FILE")
}

func TestLoad_InvalidLedgerMainnet(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("LEDGER_MAINNET", "not-a-bool")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_MAINNET")
}

func TestLoad_InvalidEventInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("EVENT_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENT_INTERVAL")
}

func TestLoad_InvalidMaintenanceInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("MAINTENANCE_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAINTENANCE_INTERVAL")
}

func TestLoad_TelegramRequiresBothTokenAndChatID(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "bot-token", cfg.TelegramBotToken)
	assert.Empty(t, cfg.TelegramChatID)
}
