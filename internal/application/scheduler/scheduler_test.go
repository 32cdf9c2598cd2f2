package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/race-of-sloths/sloth-bot-go/internal/application/dispatcher"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repo(n int) model.RepoInfo {
	return model.RepoInfo{Owner: "acme", Repo: "widget", Number: n}
}

func updateEvent(r model.RepoInfo, notifID int64, at time.Time) model.Event {
	return model.Event{
		Source:       model.EventSourcePRCommand,
		PRCommand:    model.PRCommand{Kind: model.PRCommandUpdate},
		PRCommandPR:  model.PrMetadata{RepoInfo: r},
		Notification: model.Notification{ID: notifID},
		EventTime:    at,
	}
}

func newTestScheduler(platform *fakePlatform, ledger *fakeLedger) *Scheduler {
	dispatch := dispatcher.New(platform, ledger, fakeMessages{})
	return New(dispatch, platform, ledger)
}

func TestExecuteGrouped_SerializesEventsWithinAPR(t *testing.T) {
	r := repo(1)
	ledger := &fakeLedger{info: model.PRInfo{AllowedRepo: true}}
	platform := &fakePlatform{}
	s := newTestScheduler(platform, ledger)

	// Assert ordering indirectly through MarkRead call order, which happens
	// once per event immediately after execution.
	events := []model.Event{
		updateEvent(r, 3, time.Now().Add(2*time.Second)),
		updateEvent(r, 1, time.Now()),
		updateEvent(r, 2, time.Now().Add(time.Second)),
	}
	platform.events = events

	s.executeGrouped(context.Background(), events)

	require.Len(t, platform.markedRead, 3)
	assert.Equal(t, []int64{1, 2, 3}, platform.markedRead)
}

func TestExecuteGrouped_RunsDifferentPRsConcurrently(t *testing.T) {
	ledger := &fakeLedger{info: model.PRInfo{AllowedRepo: true}}
	platform := &fakePlatform{}
	s := newTestScheduler(platform, ledger)

	events := []model.Event{
		updateEvent(repo(1), 1, time.Now()),
		updateEvent(repo(2), 2, time.Now()),
		updateEvent(repo(3), 3, time.Now()),
	}

	s.executeGrouped(context.Background(), events)

	assert.ElementsMatch(t, []int64{1, 2, 3}, platform.markedRead)
}

func TestRunEventTick_RecordsTickEvenWhenNoEvents(t *testing.T) {
	ledger := &fakeLedger{info: model.PRInfo{AllowedRepo: true}}
	platform := &fakePlatform{}
	tracker := &stubTracker{}
	s := newTestScheduler(platform, ledger)
	s.tracker = tracker

	s.runEventTick(context.Background())

	assert.Equal(t, 1, tracker.eventTicks)
}

func TestRunEventTick_ExecutesFetchedEvents(t *testing.T) {
	ledger := &fakeLedger{info: model.PRInfo{AllowedRepo: true}}
	platform := &fakePlatform{events: []model.Event{updateEvent(repo(1), 42, time.Now())}}
	tracker := &stubTracker{}
	s := newTestScheduler(platform, ledger)
	s.tracker = tracker

	s.runEventTick(context.Background())

	assert.Equal(t, []int64{42}, platform.markedRead)
	assert.Equal(t, 1, tracker.eventTicks)
}

func TestRunMaintenanceTick_RecordsTick(t *testing.T) {
	ledger := &fakeLedger{}
	platform := &fakePlatform{}
	tracker := &stubTracker{}
	s := newTestScheduler(platform, ledger)
	s.tracker = tracker

	s.runMaintenanceTick(context.Background())

	assert.Equal(t, 1, tracker.maintenanceTicks)
}

func TestNew_DefaultsAndOptions(t *testing.T) {
	ledger := &fakeLedger{}
	platform := &fakePlatform{}
	dispatch := dispatcher.New(platform, ledger, fakeMessages{})

	s := New(dispatch, platform, ledger)
	assert.Equal(t, defaultEventInterval, s.eventInterval)
	assert.Equal(t, defaultEventInterval*defaultMaintenanceMultiplier, s.maintenanceInterval)
	assert.Equal(t, uint64(200), s.pageSize)
	assert.NotNil(t, s.maintenance)

	s2 := New(dispatch, platform, ledger,
		WithEventInterval(5*time.Second),
		WithMaintenanceInterval(time.Minute),
		WithPageSize(50),
	)
	assert.Equal(t, 5*time.Second, s2.eventInterval)
	assert.Equal(t, time.Minute, s2.maintenanceInterval)
	assert.Equal(t, uint64(50), s2.pageSize)
}

type stubTracker struct {
	mu               sync.Mutex
	eventTicks       int
	maintenanceTicks int
}

func (s *stubTracker) RecordEventTick(time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventTicks++
}

func (s *stubTracker) RecordMaintenanceTick(time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenanceTicks++
}
