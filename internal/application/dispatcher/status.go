package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
)

// RefreshStatus posts or edits the PR's status comment to reflect the
// current snapshot, used by the scheduler after a tick's events have all
// executed when any handler returned should_update_status=true.
func (d *Dispatcher) RefreshStatus(ctx context.Context, pr model.PrMetadata, info model.PRInfo) {
	d.refreshStatusComment(ctx, pr, &info)
}

// refreshStatusComment edits the existing status comment if one exists,
// else posts a new one. The body is a small markdown table of recorded
// votes — there is no dedicated message category for this (the categories
// cover one-shot replies, not the running status view), so it is assembled
// directly rather than routed through the renderer.
func (d *Dispatcher) refreshStatusComment(ctx context.Context, pr model.PrMetadata, info *model.PRInfo) {
	body := renderStatusBody(pr, info)

	existing, err := d.Platform.GetBotComment(ctx, pr.RepoInfo)
	if err != nil {
		slog.Error("dispatcher: failed to fetch existing status comment", "pr", pr.RepoInfo, "error", err)
		return
	}

	if existing != nil {
		if err := d.Platform.EditComment(ctx, pr.RepoInfo, existing.ID, body); err != nil {
			slog.Error("dispatcher: failed to edit status comment", "pr", pr.RepoInfo, "error", err)
		}
		return
	}

	if _, err := d.Platform.PostReply(ctx, pr.RepoInfo, body); err != nil {
		slog.Error("dispatcher: failed to post status comment", "pr", pr.RepoInfo, "error", err)
	}
}

func renderStatusBody(pr model.PrMetadata, info *model.PRInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Contribution tracking for %s\n\n", pr.RepoInfo.FullID())

	switch {
	case info.Executed:
		fmt.Fprintf(&b, "Final score: **%d**\n", info.AverageScore())
	case info.Excluded:
		b.WriteString("This PR is excluded from scoring.\n")
	case !info.Exist:
		b.WriteString("Not yet tracked.\n")
	default:
		votes := append([]model.Vote(nil), info.Votes...)
		sort.Slice(votes, func(i, j int) bool { return votes[i].User < votes[j].User })
		if len(votes) == 0 {
			b.WriteString("Awaiting review scores.\n")
		} else {
			b.WriteString("| Reviewer | Score |\n|---|---|\n")
			for _, v := range votes {
				fmt.Fprintf(&b, "| %s | %d |\n", v.User, v.Score)
			}
			fmt.Fprintf(&b, "\nAverage: **%d**\n", info.AverageScore())
		}
	}

	return b.String()
}
