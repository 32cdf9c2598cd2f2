// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	WriteToken string
	ReadTokens []string
	ListenAddr string

	LedgerContract  string
	LedgerAccountID string
	LedgerSecretKey string
	LedgerMainnet   bool

	MessageFile string
	BotName     string

	EventInterval       time.Duration
	MaintenanceInterval time.Duration

	// TelegramBotToken and TelegramChatID are optional and travel together;
	// when either is unset, warning+ log entries are only emitted to the
	// structured logger.
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from environment variables and returns a validated Config.
// Required variables: WRITE_TOKEN, READ_TOKENS, LEDGER_CONTRACT, LEDGER_ACCOUNT_ID,
// LEDGER_SECRET_KEY, MESSAGE_FILE.
// Optional variables with defaults: LEDGER_MAINNET (false), LISTEN_ADDR (127.0.0.1:8080),
// BOT_NAME (race-of-sloths), EVENT_INTERVAL (60s), MAINTENANCE_INTERVAL (60 * EVENT_INTERVAL).
// Optional variables with no default: TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID
// (warning+ sink disabled unless both are set).
func Load() (*Config, error) {
	var cfg Config

	writeToken, ok := os.LookupEnv("WRITE_TOKEN")
	if !ok || writeToken == "" {
		return nil, fmt.Errorf("WRITE_TOKEN is required but not set")
	}
	cfg.WriteToken = writeToken

	readTokensRaw, ok := os.LookupEnv("READ_TOKENS")
	if !ok || readTokensRaw == "" {
		return nil, fmt.Errorf("READ_TOKENS is required but not set")
	}
	var readTokens []string
	for _, tok := range strings.Split(readTokensRaw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			readTokens = append(readTokens, tok)
		}
	}
	if len(readTokens) == 0 {
		return nil, fmt.Errorf("READ_TOKENS must contain at least one non-empty token")
	}
	cfg.ReadTokens = readTokens

	contract, ok := os.LookupEnv("LEDGER_CONTRACT")
	if !ok || contract == "" {
		return nil, fmt.Errorf("LEDGER_CONTRACT is required but not set")
	}
	cfg.LedgerContract = contract

	accountID, ok := os.LookupEnv("LEDGER_ACCOUNT_ID")
	if !ok || accountID == "" {
		return nil, fmt.Errorf("LEDGER_ACCOUNT_ID is required but not set")
	}
	cfg.LedgerAccountID = accountID

	secretKey, ok := os.LookupEnv("LEDGER_SECRET_KEY")
	if !ok || secretKey == "" {
		return nil, fmt.Errorf("LEDGER_SECRET_KEY is required but not set")
	}
	cfg.LedgerSecretKey = secretKey

	cfg.LedgerMainnet = false
	if v, ok := os.LookupEnv("LEDGER_MAINNET"); ok && v != "" {
		mainnet, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("LEDGER_MAINNET has invalid boolean %q: %w", v, err)
		}
		cfg.LedgerMainnet = mainnet
	}

	messageFile, ok := os.LookupEnv("MESSAGE_FILE")
	if !ok || messageFile == "" {
		return nil, fmt.Errorf("MESSAGE_FILE is required but not set")
	}
	cfg.MessageFile = messageFile

	cfg.BotName = "race-of-sloths"
	if v, ok := os.LookupEnv("BOT_NAME"); ok && v != "" {
		cfg.BotName = v
	}

	cfg.ListenAddr = "127.0.0.1:8080"
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}

	cfg.EventInterval = 60 * time.Second
	if v, ok := os.LookupEnv("EVENT_INTERVAL"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("EVENT_INTERVAL has invalid duration %q: %w", v, err)
		}
		cfg.EventInterval = parsed
	}

	cfg.MaintenanceInterval = 60 * cfg.EventInterval
	if v, ok := os.LookupEnv("MAINTENANCE_INTERVAL"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MAINTENANCE_INTERVAL has invalid duration %q: %w", v, err)
		}
		cfg.MaintenanceInterval = parsed
	}

	// TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are optional and travel
	// together — warning+ notifications only reach the structured logger
	// when either is absent.
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		slog.Warn("TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID not set — warning+ log sink disabled")
	}

	return &cfg, nil
}
