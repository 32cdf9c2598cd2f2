// Package telegram wraps an existing log/slog.Handler to additionally
// forward Warn and Error records to a Telegram chat via a single net/http
// POST, with no bot-API SDK: build the request body, POST it with a
// short-timeout client, and treat delivery failure as a warning rather
// than something that can block or fail the record it was forwarding.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

const apiBase = "https://api.telegram.org"

// Handler forwards Warn+ records from a wrapped slog.Handler to a Telegram
// chat, in addition to whatever the wrapped handler already does with them.
type Handler struct {
	next     slog.Handler
	botToken string
	chatID   string
	apiBase  string
}

// NewHandler wraps next so that every record at slog.LevelWarn or above is
// also POSTed to the given bot/chat, in addition to being handled normally
// by next. botToken and chatID are assumed non-empty; callers should only
// construct a Handler when TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID are both
// configured.
func NewHandler(next slog.Handler, botToken, chatID string) *Handler {
	return &Handler{next: next, botToken: botToken, chatID: chatID, apiBase: apiBase}
}

// NewHandlerWithAPIBase is like NewHandler but points at a custom Telegram
// API base URL, for pointing at an httptest server in tests.
func NewHandlerWithAPIBase(next slog.Handler, botToken, chatID, base string) *Handler {
	return &Handler{next: next, botToken: botToken, chatID: chatID, apiBase: base}
}

// Enabled delegates to the wrapped handler; forwarding to Telegram never
// relaxes or tightens what the wrapped handler already decides to log.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// WithAttrs and WithGroup propagate to the wrapped handler, keeping the
// Telegram forwarding behavior attached to the derived handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), botToken: h.botToken, chatID: h.chatID, apiBase: h.apiBase}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), botToken: h.botToken, chatID: h.chatID, apiBase: h.apiBase}
}

// Handle passes the record to the wrapped handler first, then best-effort
// forwards Warn+ records to Telegram. A forwarding failure is never
// returned to the caller: logging must not be able to fail the operation
// that triggered it.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.next.Handle(ctx, record)

	if record.Level >= slog.LevelWarn {
		// Clone before handing the record to another goroutine: slog warns
		// that a Record retained past the Handle call must be cloned first.
		go h.forward(record.Clone())
	}

	return err
}

// forward delivers record to Telegram. Any failure here is logged through
// h.next directly rather than the global slog default: when this Handler is
// installed as the default logger, routing a forwarding failure back
// through slog.Warn would re-enter Handle and recurse.
func (h *Handler) forward(record slog.Record) {
	fallback := slog.New(h.next)
	text := formatRecord(record)

	body, marshalErr := json.Marshal(sendMessageRequest{
		ChatID: h.chatID,
		Text:   text,
	})
	if marshalErr != nil {
		fallback.Warn("telegram: failed to marshal notification", "error", marshalErr)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", h.apiBase, h.botToken)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fallback.Warn("telegram: failed to build request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		fallback.Warn("telegram: request failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fallback.Warn("telegram: non-200 response", "status", resp.StatusCode)
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// formatRecord renders a record as a short plain-text message: level,
// message, and any attributes, one per line.
func formatRecord(record slog.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", record.Level.String(), record.Message)

	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, "\n%s=%v", attr.Key, attr.Value.Any())
		return true
	})

	return b.String()
}
