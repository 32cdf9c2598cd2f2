package driven

import (
	"context"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
)

// LedgerClient abstracts the authoritative remote state store.
// Every mutating method returns the DomainEvents decoded from the
// transaction's logs; a non-success transaction is a fatal error for that
// call.
type LedgerClient interface {
	CheckInfo(ctx context.Context, repo model.RepoInfo) (model.PRInfo, error)

	SendInclude(ctx context.Context, pr model.PrMetadata, isMaintainer bool) ([]model.DomainEvent, error)
	SendScore(ctx context.Context, pr model.PrMetadata, user string, score uint32) ([]model.DomainEvent, error)
	SendMerge(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error)
	SendStale(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error)
	SendFinalize(ctx context.Context, fullID string, wasActive bool) ([]model.DomainEvent, error)
	SendExclude(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error)
	SendPause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error)
	SendUnpause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error)

	ListUnmerged(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error)
	ListUnfinalized(ctx context.Context, page, limit uint64) ([]FinalizeCandidate, error)

	// ListPRs, ListUsers and ListRepos are plain view-style passthroughs
	// kept for operational tooling even though the bot's own
	// control flow never calls them.
	ListPRs(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error)
	ListUsers(ctx context.Context, page, limit uint64) ([]string, error)
	ListRepos(ctx context.Context, page, limit uint64) ([]model.RepoInfo, error)
	UserInfo(ctx context.Context, login string) (UserInfo, error)
}

// FinalizeCandidate pairs a PR awaiting finalization with the ledger's
// precomputed ready-to-move timestamp.
type FinalizeCandidate struct {
	PR                   model.PrMetadata
	ReadyToMoveTimestamp *int64 // unix nanos; nil means "use now".
	WasActive            bool
}

// UserInfo is the ledger's view of a registered contributor, used only to
// decide whether an invite reply is needed.
type UserInfo struct {
	Login      string
	Registered bool
}
