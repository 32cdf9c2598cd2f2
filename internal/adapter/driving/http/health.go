// Package httphandler exposes the bot's one driving HTTP surface: a
// liveness probe for container orchestration. It is deliberately not a
// read API — leaderboards, badges and anything else user-facing live in
// separate services backed by the ledger, not in the bot process.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Tracker records the last successful completion time of each background
// ticker, in unix nanoseconds, so the liveness endpoint can report
// staleness without taking a lock.
type Tracker struct {
	lastEventTick       atomic.Int64
	lastMaintenanceTick atomic.Int64
}

// RecordEventTick records when as the time of the last successful event tick.
func (t *Tracker) RecordEventTick(when time.Time) {
	t.lastEventTick.Store(when.UnixNano())
}

// RecordMaintenanceTick records when as the time of the last successful
// maintenance tick.
func (t *Tracker) RecordMaintenanceTick(when time.Time) {
	t.lastMaintenanceTick.Store(when.UnixNano())
}

func (t *Tracker) eventTickTime() *time.Time {
	return nanoToTimePtr(t.lastEventTick.Load())
}

func (t *Tracker) maintenanceTickTime() *time.Time {
	return nanoToTimePtr(t.lastMaintenanceTick.Load())
}

func nanoToTimePtr(nanos int64) *time.Time {
	if nanos == 0 {
		return nil
	}
	when := time.Unix(0, nanos).UTC()
	return &when
}

// healthResponse is the liveness probe's JSON body.
type healthResponse struct {
	Status              string  `json:"status"`
	LastEventTick       *string `json:"last_event_tick,omitempty"`
	LastMaintenanceTick *string `json:"last_maintenance_tick,omitempty"`
}

// Handler serves the liveness endpoint.
type Handler struct {
	tracker *Tracker
	logger  *slog.Logger
}

// NewHandler builds a Handler bound to tracker.
func NewHandler(tracker *Tracker, logger *slog.Logger) *Handler {
	return &Handler{tracker: tracker, logger: logger}
}

// NewServeMux registers the liveness route behind the logging and
// recovery middleware.
func NewServeMux(h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)

	wrapped := recoveryMiddleware(h.logger, mux)
	wrapped = loggingMiddleware(h.logger, wrapped)
	return wrapped
}

// Healthz reports the last successful tick timestamps. It always returns
// 200: this is a liveness probe, not a readiness gate — a tick that simply
// hasn't fired yet (e.g. right after startup) is not a failure.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if when := h.tracker.eventTickTime(); when != nil {
		s := when.Format(time.RFC3339)
		resp.LastEventTick = &s
	}
	if when := h.tracker.maintenanceTickTime(); when != nil {
		s := when.Format(time.RFC3339)
		resp.LastMaintenanceTick = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
