// Package maintenance implements the hourly reconciliation pass: it walks
// the ledger's unmerged and unfinalized backlogs, synthesizes the Stale,
// Merge and Finalize events the event-driven path might have missed (a
// closed PR whose notification was never seen, or a PR past its review
// window), and feeds them back through the same dispatcher used for live
// notifications: fetch the backlog, refetch each PR's platform state, and
// synthesize one Event per item.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// staleAfter is the inactivity window past which an unmerged PR is
// considered abandoned and gets a synthesized Stale event.
const staleAfter = 14 * 24 * time.Hour

// Loop reconciles the ledger's backlog against live platform state.
type Loop struct {
	platform driven.PlatformClient
	ledger   driven.LedgerClient
	execute  func(ctx context.Context, event model.Event) error
	pageSize uint64
}

// New constructs a maintenance Loop. execute is the dispatcher's Execute
// method, narrowed to drop its Result so this package stays decoupled from
// the dispatcher's return type.
func New(platform driven.PlatformClient, ledger driven.LedgerClient, execute func(ctx context.Context, event model.Event) error, pageSize uint64) *Loop {
	if pageSize == 0 {
		pageSize = 200
	}
	return &Loop{platform: platform, ledger: ledger, execute: execute, pageSize: pageSize}
}

// Run executes both reconciliation passes in order: merges must land before
// finalizes, since a freshly-merged PR can become finalize-eligible in the
// same ledger state the second pass reads.
func (l *Loop) Run(ctx context.Context) {
	events := l.mergeAndStaleEvents(ctx)
	for _, ev := range events {
		if err := l.execute(ctx, ev); err != nil {
			slog.Error("maintenance: executing merge/stale event failed", "pr", ev.RepoInfo().FullID(), "error", err)
		}
	}

	finalizeEvents := l.finalizeEvents(ctx)
	for _, ev := range finalizeEvents {
		if err := l.execute(ctx, ev); err != nil {
			slog.Error("maintenance: executing finalize event failed", "pr", ev.RepoInfo().FullID(), "error", err)
		}
	}

	slog.Info("maintenance cycle complete", "merge_stale_events", len(events), "finalize_events", len(finalizeEvents))
}

// mergeAndStaleEvents implements the maintenance loop's first pass:
// refetch every PR the ledger still considers unmerged; if the platform
// now shows it merged, synthesize a Merge event timed to the merge;
// otherwise, if it has gone stale or been closed unmerged, synthesize a
// Stale event timed to now.
func (l *Loop) mergeAndStaleEvents(ctx context.Context) []model.Event {
	var events []model.Event

	for page := uint64(0); ; page++ {
		batch, err := l.ledger.ListUnmerged(ctx, page, l.pageSize)
		if err != nil {
			slog.Error("maintenance: listing unmerged PRs failed", "page", page, "error", err)
			return events
		}
		if len(batch) == 0 {
			break
		}

		for _, stale := range batch {
			pr, err := l.platform.GetPR(ctx, stale.RepoInfo)
			if err != nil {
				slog.Error("maintenance: refetching PR failed", "pr", stale.RepoInfo.FullID(), "error", err)
				continue
			}

			if pr.IsMerged() {
				merger, reviewers, err := l.platform.GetMergeInfo(ctx, pr.RepoInfo)
				if err != nil {
					slog.Error("maintenance: fetching merge info failed", "pr", pr.RepoInfo.FullID(), "error", err)
					continue
				}
				events = append(events, model.Event{
					Source:    model.EventSourceAction,
					Action:    model.Action{Kind: model.ActionMerge, Merger: merger, Reviewers: reviewers},
					ActionPR:  pr,
					EventTime: *pr.Merged,
				})
				continue
			}

			if isAbandoned(pr) {
				events = append(events, model.Event{
					Source:    model.EventSourceAction,
					Action:    model.Action{Kind: model.ActionStale},
					ActionPR:  pr,
					EventTime: time.Now(),
				})
			}
		}

		if uint64(len(batch)) < l.pageSize {
			break
		}
	}

	return events
}

// isAbandoned reports whether an unmerged PR should be treated as stale:
// inactive for more than staleAfter, or already closed without merging.
func isAbandoned(pr model.PrMetadata) bool {
	return time.Since(pr.Updated) > staleAfter || pr.Closed
}

// finalizeEvents implements the maintenance loop's second pass: every
// ledger-reported unfinalized PR gets a Finalize event, timed to the
// ledger's ready-to-move timestamp when it provides one.
func (l *Loop) finalizeEvents(ctx context.Context) []model.Event {
	var events []model.Event

	for page := uint64(0); ; page++ {
		batch, err := l.ledger.ListUnfinalized(ctx, page, l.pageSize)
		if err != nil {
			slog.Error("maintenance: listing unfinalized PRs failed", "page", page, "error", err)
			return events
		}
		if len(batch) == 0 {
			break
		}

		for _, candidate := range batch {
			events = append(events, model.Event{
				Source:    model.EventSourceAction,
				Action:    model.Action{Kind: model.ActionFinalize},
				ActionPR:  candidate.PR,
				EventTime: finalizeEventTime(candidate),
			})
		}

		if uint64(len(batch)) < l.pageSize {
			break
		}
	}

	return events
}

// finalizeEventTime resolves a FinalizeCandidate's event_time: the ledger's
// ready-to-move timestamp when present, else now.
func finalizeEventTime(c driven.FinalizeCandidate) time.Time {
	if c.ReadyToMoveTimestamp == nil {
		return time.Now()
	}
	return time.Unix(0, *c.ReadyToMoveTimestamp)
}
