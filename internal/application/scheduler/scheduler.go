// Package scheduler runs the two interleaved tickers described in the
// concurrency model: an event ticker that drains the platform's notification
// feed and fans events out per-PR, and a maintenance ticker that reconciles
// the ledger's unmerged/unfinalized backlog. A single select loop drives
// both tickers plus cooperative shutdown, with per-cycle work delegated to
// small private methods.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/race-of-sloths/sloth-bot-go/internal/application/dispatcher"
	"github.com/race-of-sloths/sloth-bot-go/internal/application/maintenance"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// TickTracker is notified after each successful tick. It backs the
// liveness endpoint's "last tick" reporting; Scheduler depends
// on it only through this narrow interface so the HTTP adapter package
// never needs to be imported here.
type TickTracker interface {
	RecordEventTick(when time.Time)
	RecordMaintenanceTick(when time.Time)
}

type noopTracker struct{}

func (noopTracker) RecordEventTick(time.Time)       {}
func (noopTracker) RecordMaintenanceTick(time.Time) {}

// A 60s event tick and an hourly maintenance tick by default.
const (
	defaultEventInterval         = 60 * time.Second
	defaultMaintenanceMultiplier = 60
)

// Scheduler owns the two tickers and the per-PR fan-out. It holds no
// mutable cross-tick state of its own beyond the tickers — every bit of
// durable state lives in the ledger.
type Scheduler struct {
	dispatch    *dispatcher.Dispatcher
	platform    driven.PlatformClient
	ledger      driven.LedgerClient
	maintenance *maintenance.Loop
	tracker     TickTracker

	eventInterval       time.Duration
	maintenanceInterval time.Duration

	pageSize uint64
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithEventInterval overrides the default 60s event tick.
func WithEventInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.eventInterval = d }
}

// WithMaintenanceInterval overrides the default hourly maintenance tick.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.maintenanceInterval = d }
}

// WithPageSize overrides the ledger pagination page size.
func WithPageSize(n uint64) Option {
	return func(s *Scheduler) { s.pageSize = n }
}

// WithTickTracker wires a TickTracker so a liveness endpoint can report the
// last successful tick of each ticker.
func WithTickTracker(t TickTracker) Option {
	return func(s *Scheduler) { s.tracker = t }
}

// New constructs a Scheduler wired to its dispatcher and the two ports the
// maintenance loop needs directly (platform PR fetch, ledger listings).
func New(dispatch *dispatcher.Dispatcher, platform driven.PlatformClient, ledger driven.LedgerClient, opts ...Option) *Scheduler {
	s := &Scheduler{
		dispatch:            dispatch,
		platform:            platform,
		ledger:              ledger,
		tracker:             noopTracker{},
		eventInterval:       defaultEventInterval,
		maintenanceInterval: defaultEventInterval * defaultMaintenanceMultiplier,
		pageSize:            200,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.maintenance = maintenance.New(s.platform, s.ledger, s.executeOne, s.pageSize)
	return s
}

// executeOne adapts Dispatcher.Execute to the func(ctx, event) error shape
// the maintenance loop calls, discarding the Result the maintenance loop
// has no use for.
func (s *Scheduler) executeOne(ctx context.Context, event model.Event) error {
	_, err := s.dispatch.Execute(ctx, event)
	return err
}

// Run blocks until ctx is canceled, driving both tickers. A SIGINT-derived
// context cancellation is cooperative: the loop only checks ctx.Done()
// between ticks, so an in-flight tick's per-PR goroutines always finish.
func (s *Scheduler) Run(ctx context.Context) {
	eventTicker := time.NewTicker(s.eventInterval)
	defer eventTicker.Stop()

	maintenanceTicker := time.NewTicker(s.maintenanceInterval)
	defer maintenanceTicker.Stop()

	slog.Info("scheduler started", "event_interval", s.eventInterval, "maintenance_interval", s.maintenanceInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-eventTicker.C:
			s.runEventTick(ctx)
		case <-maintenanceTicker.C:
			s.runMaintenanceTick(ctx)
		}
	}
}

// runEventTick fetches the platform's notification feed, groups the
// resulting events by full_id, and runs each group through the dispatcher
// strictly sequentially, one goroutine per PR.
func (s *Scheduler) runEventTick(ctx context.Context) {
	events, err := s.platform.GetEvents(ctx)
	if err != nil {
		slog.Error("scheduler: fetching events failed", "error", err)
		return
	}
	if len(events) > 0 {
		s.executeGrouped(ctx, events)
	}
	s.tracker.RecordEventTick(time.Now())
}

// runMaintenanceTick runs the maintenance loop's two reconciliation
// passes, feeding synthesized events back through the same dispatcher used
// for live notifications.
func (s *Scheduler) runMaintenanceTick(ctx context.Context) {
	s.maintenance.Run(ctx)
	s.tracker.RecordMaintenanceTick(time.Now())
}

// executeGrouped partitions events by the PR they target, sorts each
// group into chronological order, and runs the groups concurrently while
// each group's events execute one at a time.
func (s *Scheduler) executeGrouped(ctx context.Context, events []model.Event) {
	grouped := make(map[string][]model.Event, len(events))
	for _, ev := range events {
		id := ev.RepoInfo().FullID()
		grouped[id] = append(grouped[id], ev)
	}

	var wg sync.WaitGroup
	for fullID, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool { return group[i].EventTime.Before(group[j].EventTime) })

		wg.Add(1)
		go func(fullID string, group []model.Event) {
			defer wg.Done()
			s.executeSequential(ctx, fullID, group)
		}(fullID, group)
	}
	wg.Wait()
}

// executeSequential runs one PR's events through the dispatcher in order,
// marks each consumed notification read once the last event it produced
// has run, and refreshes the status comment once at the end if any
// handler asked for it.
func (s *Scheduler) executeSequential(ctx context.Context, fullID string, group []model.Event) {
	var shouldUpdate bool
	var lastPR model.PrMetadata
	havePR := false

	lastForNotification := make(map[int64]int, len(group))
	for i, ev := range group {
		lastForNotification[ev.Notification.ID] = i
	}

	for i, ev := range group {
		result, err := s.dispatch.Execute(ctx, ev)
		if err != nil {
			slog.Error("scheduler: event execution failed", "pr", fullID, "error", err)
			continue
		}
		shouldUpdate = shouldUpdate || result.ShouldUpdateStatus

		if ev.Notification.ID != 0 && lastForNotification[ev.Notification.ID] == i {
			if err := s.platform.MarkRead(ctx, ev.Notification); err != nil {
				slog.Error("scheduler: marking notification read failed", "pr", fullID, "error", err)
			}
		}

		if pr, ok := prFromEvent(ev); ok {
			lastPR = pr
			havePR = true
		}
	}

	if !shouldUpdate || !havePR {
		return
	}

	info, err := s.ledger.CheckInfo(ctx, lastPR.RepoInfo)
	if err != nil {
		slog.Error("scheduler: refetching ledger info for status refresh failed", "pr", fullID, "error", err)
		return
	}
	s.dispatch.RefreshStatus(ctx, lastPR, info)
}

// prFromEvent extracts the PrMetadata an event pertains to, when it has one.
// Issue-level events (IssueCommand) have no PR to refresh a status comment on.
func prFromEvent(ev model.Event) (model.PrMetadata, bool) {
	switch ev.Source {
	case model.EventSourcePRCommand:
		return ev.PRCommandPR, true
	case model.EventSourceAction:
		return ev.ActionPR, true
	default:
		return model.PrMetadata{}, false
	}
}
