package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/race-of-sloths/sloth-bot-go/internal/application/parser"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// handleInclude implements the Include handler. It posts or edits the
// status comment itself, so it returns should_update=false.
func (d *Dispatcher) handleInclude(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, sender model.User, trigger *model.CommentRepr) (Result, error) {
	if info.Exist {
		return skipped(), nil
	}

	if !pr.WithinIncludeWindow(time.Now()) {
		d.reply(ctx, pr.RepoInfo, driven.MsgErrorLateInclude, nil)
		return repliedWithError(), nil
	}

	if info.Excluded && !sender.IsMaintainer() {
		d.reply(ctx, pr.RepoInfo, driven.MsgErrorRightsViolation, nil)
		return repliedWithError(), nil
	}

	if sender.Login != pr.Author.Login {
		authorInfo, err := d.Ledger.UserInfo(ctx, pr.Author.Login)
		if err != nil {
			return Result{}, fmt.Errorf("checking ledger registration for %s: %w", pr.Author.Login, err)
		}
		if !authorInfo.Registered {
			d.reply(ctx, pr.RepoInfo, driven.MsgIncludeBasic, map[string]string{
				"author": pr.Author.Login,
				"sender": sender.Login,
			})
			return success(false), nil
		}
	}

	if _, err := d.Ledger.SendInclude(ctx, pr, sender.IsMaintainer()); err != nil {
		return Result{}, fmt.Errorf("sending include for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.Exist = true
	info.Excluded = false

	if trigger != nil && trigger.CommentID != nil {
		d.thumbsUp(ctx, pr.RepoInfo, *trigger.CommentID)
	}
	d.refreshStatusComment(ctx, pr, info)

	return success(false), nil
}

// handleScore implements the Score handler. muted suppresses
// every user-visible reply (used when replaying pre-merge score comments
// from the automatic Merge handler) but still mutates the ledger.
func (d *Dispatcher) handleScore(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, sender model.User, cmd model.PRCommand, trigger *model.CommentRepr, muted bool) (Result, error) {
	if info.Executed {
		return skipped(), nil
	}

	if !info.Exist {
		if _, err := d.handleInclude(ctx, info, pr, sender, trigger); err != nil {
			return Result{}, err
		}
		if !info.Exist {
			return skipped(), nil
		}
	}

	if sender.Login == pr.Author.Login {
		if !muted {
			d.reply(ctx, pr.RepoInfo, driven.MsgErrorSelfScore, nil)
			return repliedWithError(), nil
		}
		return skipped(), nil
	}

	if !sender.IsMaintainer() {
		if !muted {
			d.reply(ctx, pr.RepoInfo, driven.MsgErrorRightsViolation, nil)
			return repliedWithError(), nil
		}
		return skipped(), nil
	}

	score, edited := parser.NormalizeScore(cmd.RawScore)

	if _, err := d.Ledger.SendScore(ctx, pr, sender.Login, uint32(score)); err != nil {
		return Result{}, fmt.Errorf("sending score for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.RecordVote(sender.Login, uint32(score))

	if muted {
		return success(true), nil
	}

	if edited {
		d.reply(ctx, pr.RepoInfo, driven.MsgCorrectableScoring, map[string]string{
			"reviewer":       sender.Login,
			"corrected_score": strconv.FormatUint(score, 10),
			"score":          cmd.RawScore,
		})
	} else {
		if trigger != nil && trigger.CommentID != nil {
			d.thumbsUp(ctx, pr.RepoInfo, *trigger.CommentID)
		}
		category := driven.MsgCorrectNonzeroScoring
		if score == 0 {
			category = driven.MsgCorrectZeroScoring
		}
		d.reply(ctx, pr.RepoInfo, category, map[string]string{
			"reviewer": sender.Login,
			"score":    strconv.FormatUint(score, 10),
		})
	}

	return success(true), nil
}

// handlePause implements the Pause handler.
func (d *Dispatcher) handlePause(ctx context.Context, info *model.PRInfo, repo model.RepoInfo, sender model.User) (Result, error) {
	if !sender.IsMaintainer() {
		d.reply(ctx, repo, driven.MsgErrorRightsViolation, nil)
		return repliedWithError(), nil
	}
	if info.PausedRepo {
		d.reply(ctx, repo, driven.MsgErrorPausePaused, nil)
		return repliedWithError(), nil
	}
	if _, err := d.Ledger.SendPause(ctx, repo); err != nil {
		return Result{}, fmt.Errorf("sending pause for %s: %w", repo.FullID(), err)
	}
	info.PausedRepo = true
	info.Paused = true
	d.reply(ctx, repo, driven.MsgPause, nil)
	return success(true), nil
}

// handleUnpause implements the Unpause handler.
func (d *Dispatcher) handleUnpause(ctx context.Context, info *model.PRInfo, repo model.RepoInfo, sender model.User) (Result, error) {
	if !sender.IsMaintainer() {
		d.reply(ctx, repo, driven.MsgErrorRightsViolation, nil)
		return repliedWithError(), nil
	}
	if !info.PausedRepo {
		d.reply(ctx, repo, driven.MsgErrorUnpauseUnpaused, nil)
		return repliedWithError(), nil
	}
	if _, err := d.Ledger.SendUnpause(ctx, repo); err != nil {
		return Result{}, fmt.Errorf("sending unpause for %s: %w", repo.FullID(), err)
	}
	info.PausedRepo = false
	info.Paused = false
	d.reply(ctx, repo, driven.MsgUnpause, nil)
	return success(true), nil
}

// handleExclude implements the Exclude handler.
func (d *Dispatcher) handleExclude(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, sender model.User) (Result, error) {
	if !sender.IsMaintainer() {
		d.reply(ctx, pr.RepoInfo, driven.MsgErrorRightsViolation, nil)
		return repliedWithError(), nil
	}
	if _, err := d.Ledger.SendExclude(ctx, pr); err != nil {
		return Result{}, fmt.Errorf("sending exclude for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.Excluded = true
	d.reply(ctx, pr.RepoInfo, driven.MsgExclude, nil)
	return success(true), nil
}

// handleUnknown implements the Unknown handler: an unrecognized
// verb on a PR that isn't yet tracked is treated as an implicit Include.
func (d *Dispatcher) handleUnknown(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, sender model.User, trigger *model.CommentRepr) (Result, error) {
	if !info.Exist {
		return d.handleInclude(ctx, info, pr, sender, trigger)
	}
	d.reply(ctx, pr.RepoInfo, driven.MsgErrorUnknownCommand, nil)
	return repliedWithError(), nil
}

// handleMerge implements the Merge action handler.
func (d *Dispatcher) handleMerge(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, action model.Action) (Result, error) {
	if info.Merged {
		return skipped(), nil
	}

	if _, err := d.Ledger.SendMerge(ctx, pr); err != nil {
		return Result{}, fmt.Errorf("sending merge for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.Merged = true

	if info.PausedRepo || info.BlockedRepo {
		return success(false), nil
	}

	if len(info.Votes) > 0 {
		d.reply(ctx, pr.RepoInfo, driven.MsgMergeWithScore, map[string]string{
			"author": pr.Author.Login,
			"score":  strconv.FormatUint(uint64(info.AverageScore()), 10),
		})
		return success(true), nil
	}

	return d.autoscoreMerge(ctx, info, pr, action)
}

// autoscoreMerge implements the "no prior scoring" branch of the Merge
// handler: it replays any score commands posted before the merge, or
// offers an autoscore suggestion when none exist.
func (d *Dispatcher) autoscoreMerge(ctx context.Context, info *model.PRInfo, pr model.PrMetadata, action model.Action) (Result, error) {
	comments, err := d.Platform.GetComments(ctx, pr.RepoInfo)
	if err != nil {
		return Result{}, fmt.Errorf("listing comments for autoscore on %s: %w", pr.RepoInfo.FullID(), err)
	}

	active, err := d.Platform.IsActivePR(ctx, pr.RepoInfo, pr.Author.Login)
	if err != nil {
		return Result{}, fmt.Errorf("checking activity for %s: %w", pr.RepoInfo.FullID(), err)
	}
	autoscore := "1"
	if active {
		autoscore = "2"
	}

	preMergeScores := findPreMergeScores(comments, pr, d.Platform.WriteHandle())

	if len(preMergeScores) > 0 {
		for _, replay := range preMergeScores {
			if _, err := d.handleScore(ctx, info, pr, replay.sender, replay.cmd, nil, true); err != nil {
				slog.Error("dispatcher: failed replaying pre-merge score", "pr", pr.RepoInfo, "error", err)
			}
		}
		return success(true), nil
	}

	if action.Merger != pr.Author.Login {
		d.reply(ctx, pr.RepoInfo, driven.MsgMergeWithoutScoreByOtherParty, map[string]string{
			"maintainer":      action.Merger,
			"potential_score": autoscore,
		})
	} else if len(action.Reviewers) > 0 {
		d.reply(ctx, pr.RepoInfo, driven.MsgMergeWithoutScoreByOtherParty, map[string]string{
			"maintainer":      joinHandles(action.Reviewers),
			"potential_score": autoscore,
		})
	} else {
		d.reply(ctx, pr.RepoInfo, driven.MsgMergeWithoutScoreByAuthorWithoutReview, map[string]string{
			"author":          pr.Author.Login,
			"potential_score": autoscore,
		})
	}

	return success(true), nil
}

type scoreReplay struct {
	sender model.User
	cmd    model.PRCommand
}

// findPreMergeScores scans a PR's comment history for score commands
// posted before the merge, using the same mention-extraction rules as the
// live event path.
func findPreMergeScores(comments []model.CommentRepr, pr model.PrMetadata, writeHandle string) []scoreReplay {
	if pr.Merged == nil {
		return nil
	}

	var out []scoreReplay
	for _, cm := range comments {
		if !cm.Timestamp.Before(*pr.Merged) {
			continue
		}
		verb, args, ok := parser.Extract(writeHandle, cm.Text)
		if !ok {
			continue
		}
		cmd := parser.ParsePR(verb, args)
		if cmd.Kind != model.PRCommandScore {
			continue
		}
		out = append(out, scoreReplay{sender: cm.User, cmd: cmd})
	}
	return out
}

// handleStale implements the Stale action handler.
func (d *Dispatcher) handleStale(ctx context.Context, info *model.PRInfo, pr model.PrMetadata) (Result, error) {
	if info.Merged {
		return skipped(), nil
	}

	if _, err := d.Ledger.SendStale(ctx, pr); err != nil {
		return Result{}, fmt.Errorf("sending stale for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.ResetOnStale()

	if !info.AllowedRepo || info.Paused {
		return success(false), nil
	}
	if pr.Closed {
		return success(true), nil
	}

	d.reply(ctx, pr.RepoInfo, driven.MsgStale, nil)
	return success(true), nil
}

// handleFinalize implements the Finalize action handler.
func (d *Dispatcher) handleFinalize(ctx context.Context, info *model.PRInfo, pr model.PrMetadata) (Result, error) {
	if info.Executed {
		return skipped(), nil
	}

	active, err := d.Platform.IsActivePR(ctx, pr.RepoInfo, pr.Author.Login)
	if err != nil {
		return Result{}, fmt.Errorf("checking activity before finalize on %s: %w", pr.RepoInfo.FullID(), err)
	}

	if _, err := d.Ledger.SendFinalize(ctx, pr.RepoInfo.FullID(), active); err != nil {
		return Result{}, fmt.Errorf("sending finalize for %s: %w", pr.RepoInfo.FullID(), err)
	}
	info.Executed = true

	if info.AllowedRepo {
		d.reply(ctx, pr.RepoInfo, driven.MsgFinal, map[string]string{
			"author": pr.Author.Login,
			"score":  strconv.FormatUint(uint64(info.AverageScore()), 10),
		})
	}

	return success(false), nil
}

func (d *Dispatcher) thumbsUp(ctx context.Context, repo model.RepoInfo, commentID int64) {
	if err := d.Platform.React(ctx, repo, commentID, true); err != nil {
		slog.Warn("dispatcher: failed to react to comment", "repo", repo, "comment_id", commentID, "error", err)
	}
}
