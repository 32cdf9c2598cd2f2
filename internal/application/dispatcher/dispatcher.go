// Package dispatcher applies the gating precedence and command/action
// handlers against a freshly fetched ledger snapshot for a single PR: a
// small struct holding only port interfaces, a single Execute entry point,
// and pure in-memory logic everywhere except at the port boundary.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// Dispatcher depends only on the driven ports, so it can be exercised
// against in-memory fakes.
type Dispatcher struct {
	Platform driven.PlatformClient
	Ledger   driven.LedgerClient
	Messages driven.MessageRenderer
}

// New constructs a Dispatcher. All three ports are required.
func New(platform driven.PlatformClient, ledger driven.LedgerClient, messages driven.MessageRenderer) *Dispatcher {
	return &Dispatcher{Platform: platform, Ledger: ledger, Messages: messages}
}

// Execute is the single entry point the scheduler calls once per event,
// strictly serially within a PR.
func (d *Dispatcher) Execute(ctx context.Context, event model.Event) (Result, error) {
	repo := event.RepoInfo()

	info, err := d.Ledger.CheckInfo(ctx, repo)
	if err != nil {
		return Result{}, fmt.Errorf("checking ledger info for %s: %w", repo.FullID(), err)
	}

	switch event.Source {
	case model.EventSourcePRCommand:
		return d.executePRCommand(ctx, &info, event)
	case model.EventSourceIssueCommand:
		return d.executeIssueCommand(ctx, &info, event)
	case model.EventSourceAction:
		return d.executeAction(ctx, &info, event)
	default:
		return Result{}, fmt.Errorf("unknown event source %v", event.Source)
	}
}

// executePRCommand applies the gating chain, in order, before dispatching
// to the matching command handler.
func (d *Dispatcher) executePRCommand(ctx context.Context, info *model.PRInfo, event model.Event) (Result, error) {
	pr := event.PRCommandPR
	sender := event.PRSender
	cmd := event.PRCommand

	if gate, handled := d.gateAllowedRepo(ctx, info, pr.RepoInfo); handled {
		return gate, nil
	}

	if gate, handled := d.gatePaused(ctx, info, pr.RepoInfo, cmd.Kind); handled {
		return gate, nil
	}

	if info.Executed {
		if cmd.Kind == model.PRCommandScore {
			d.reply(ctx, pr.RepoInfo, driven.MsgErrorLateScoring, nil)
			return repliedWithError(), nil
		}
		return skipped(), nil
	}

	if info.Excluded && cmd.Kind != model.PRCommandInclude {
		return skipped(), nil
	}

	switch cmd.Kind {
	case model.PRCommandInclude:
		return d.handleInclude(ctx, info, pr, sender, event.TriggerComment)
	case model.PRCommandScore:
		return d.handleScore(ctx, info, pr, sender, cmd, event.TriggerComment, false)
	case model.PRCommandPause:
		return d.handlePause(ctx, info, pr.RepoInfo, sender)
	case model.PRCommandUnpause:
		return d.handleUnpause(ctx, info, pr.RepoInfo, sender)
	case model.PRCommandExclude:
		return d.handleExclude(ctx, info, pr, sender)
	case model.PRCommandUpdate:
		return success(true), nil
	case model.PRCommandUnknown:
		return d.handleUnknown(ctx, info, pr, sender, event.TriggerComment)
	default:
		return skipped(), nil
	}
}

// executeIssueCommand handles the sole issue-level command: an Unpause
// raised from an issue thread.
func (d *Dispatcher) executeIssueCommand(ctx context.Context, info *model.PRInfo, event model.Event) (Result, error) {
	repo := event.IssueCommandRepo

	if gate, handled := d.gateAllowedRepo(ctx, info, repo); handled {
		return gate, nil
	}

	if info.BlockedRepo {
		if d.isFirstInteraction(ctx, repo) {
			d.reply(ctx, repo, driven.MsgErrorRepoIsBanned, nil)
			return repliedWithError(), nil
		}
		return skipped(), nil
	}

	if !info.PausedRepo {
		d.reply(ctx, repo, driven.MsgErrorUnpauseUnpaused, nil)
		return repliedWithError(), nil
	}

	if !event.IssueSender.IsMaintainer() {
		d.reply(ctx, repo, driven.MsgErrorRightsViolation, nil)
		return repliedWithError(), nil
	}

	if _, err := d.Ledger.SendUnpause(ctx, repo); err != nil {
		return Result{}, fmt.Errorf("sending unpause for %s: %w", repo.FullID(), err)
	}
	info.PausedRepo = false
	d.reply(ctx, repo, driven.MsgUnpauseIssue, nil)
	return success(false), nil
}

// executeAction dispatches a synthesized lifecycle action.
// Actions bypass the PR-command gating chain; each implements its own
// guard against the fetched PRInfo.
func (d *Dispatcher) executeAction(ctx context.Context, info *model.PRInfo, event model.Event) (Result, error) {
	switch event.Action.Kind {
	case model.ActionMerge:
		return d.handleMerge(ctx, info, event.ActionPR, event.Action)
	case model.ActionStale:
		return d.handleStale(ctx, info, event.ActionPR)
	case model.ActionFinalize:
		return d.handleFinalize(ctx, info, event.ActionPR)
	default:
		return skipped(), nil
	}
}

// gateAllowedRepo is the first gate: repos outside the allow-list.
func (d *Dispatcher) gateAllowedRepo(ctx context.Context, info *model.PRInfo, repo model.RepoInfo) (Result, bool) {
	if info.AllowedRepo {
		return Result{}, false
	}
	if d.isFirstInteraction(ctx, repo) {
		d.reply(ctx, repo, driven.MsgErrorOrgNotInAllowedList, nil)
		return repliedWithError(), true
	}
	return skipped(), true
}

// gatePaused blocks every command except Pause/Unpause while the PR is
// paused.
func (d *Dispatcher) gatePaused(ctx context.Context, info *model.PRInfo, repo model.RepoInfo, cmd model.PRCommandKind) (Result, bool) {
	if !info.Paused {
		return Result{}, false
	}
	if cmd == model.PRCommandPause || cmd == model.PRCommandUnpause {
		return Result{}, false
	}
	if d.isFirstInteraction(ctx, repo) {
		d.reply(ctx, repo, driven.MsgErrorPaused, nil)
		return repliedWithError(), true
	}
	return skipped(), true
}

// isFirstInteraction reports whether the bot has not yet posted a status
// comment on this PR/repo — used to suppress repeated gate replies.
func (d *Dispatcher) isFirstInteraction(ctx context.Context, repo model.RepoInfo) bool {
	existing, err := d.Platform.GetBotComment(ctx, repo)
	if err != nil {
		slog.Warn("dispatcher: failed to check for existing bot comment", "repo", repo, "error", err)
		return false
	}
	return existing == nil
}

func (d *Dispatcher) reply(ctx context.Context, repo model.RepoInfo, category driven.MessageCategory, vars map[string]string) {
	text := d.Messages.Render(category, vars)
	if _, err := d.Platform.PostReply(ctx, repo, text); err != nil {
		slog.Error("dispatcher: failed to post reply", "repo", repo, "category", category, "error", err)
	}
}

// joinHandles renders a reviewer list for a reply: the first handle is
// substituted after a literal "@" in the template, so only the subsequent
// ones carry their own prefix ("r1 @r2 @r3").
func joinHandles(handles []string) string {
	return strings.Join(handles, " @")
}
