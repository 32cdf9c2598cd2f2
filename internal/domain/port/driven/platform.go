// Package driven defines the secondary port interfaces the application layer
// depends on, so the dispatcher and scheduler can be exercised against
// in-memory fakes instead of a real HTTP/RPC stack.
package driven

import (
	"context"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
)

// PlatformClient abstracts the hosted code-review platform: notifications,
// pull requests, issues, comments, reviews, and the mutations the bot needs
// to reply.
type PlatformClient interface {
	// GetEvents polls the next read credential in round-robin order and
	// returns every Event reconstructed from its notification feed.
	GetEvents(ctx context.Context) ([]model.Event, error)

	// PostReply posts a new top-level comment and returns its representation.
	PostReply(ctx context.Context, repo model.RepoInfo, text string) (model.CommentRepr, error)

	// EditComment overwrites the body of an existing comment.
	EditComment(ctx context.Context, repo model.RepoInfo, commentID int64, text string) error

	// React adds a reaction to a comment. thumbsUp selects "+1"; the bot
	// never posts any other reaction.
	React(ctx context.Context, repo model.RepoInfo, commentID int64, thumbsUp bool) error

	// MarkRead marks a notification read using the same read credential that
	// produced it. A mismatched credential is a programming error.
	MarkRead(ctx context.Context, n model.Notification) error

	// RateLimits reports the remaining budget for every credential the
	// client holds (write credential first, then read credentials in order).
	RateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error)

	// GetPR fetches the current platform state of a pull request.
	GetPR(ctx context.Context, repo model.RepoInfo) (model.PrMetadata, error)

	// GetMergeInfo reports who merged the PR and the deduplicated logins of
	// reviews in approved or pending state, for building a Merge action.
	GetMergeInfo(ctx context.Context, repo model.RepoInfo) (merger string, reviewers []string, err error)

	// GetBotComment paginates comments until one authored by the write
	// credential is found, or returns (nil, nil) if there is none yet.
	GetBotComment(ctx context.Context, repo model.RepoInfo) (*model.CommentRepr, error)

	// IsActivePR reports whether at least two distinct users, other than
	// the bot and the PR author, commented on or reviewed the PR.
	IsActivePR(ctx context.Context, repo model.RepoInfo, author string) (bool, error)

	// GetComments returns every issue comment and review on the PR, merged
	// into chronological order and normalized to CommentRepr. Used by the
	// automatic Merge handler to find pre-existing score commands and by
	// the event builder's backstop walk.
	GetComments(ctx context.Context, repo model.RepoInfo) ([]model.CommentRepr, error)

	// WriteHandle returns the login of the write credential — the bot's
	// "current user" and the identity every status comment is posted as.
	WriteHandle() string
}
