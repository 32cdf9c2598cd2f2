package maintenance

import (
	"context"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// fakePlatform serves GetPR from a canned map, keyed by full_id.
type fakePlatform struct {
	prs       map[string]model.PrMetadata
	merger    string
	reviewers []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{prs: map[string]model.PrMetadata{}}
}

func (f *fakePlatform) GetEvents(ctx context.Context) ([]model.Event, error) { return nil, nil }
func (f *fakePlatform) PostReply(ctx context.Context, repo model.RepoInfo, text string) (model.CommentRepr, error) {
	return model.CommentRepr{}, nil
}
func (f *fakePlatform) EditComment(ctx context.Context, repo model.RepoInfo, commentID int64, text string) error {
	return nil
}
func (f *fakePlatform) React(ctx context.Context, repo model.RepoInfo, commentID int64, thumbsUp bool) error {
	return nil
}
func (f *fakePlatform) MarkRead(ctx context.Context, n model.Notification) error { return nil }
func (f *fakePlatform) RateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error) {
	return nil, nil
}
func (f *fakePlatform) GetPR(ctx context.Context, repo model.RepoInfo) (model.PrMetadata, error) {
	return f.prs[repo.FullID()], nil
}
func (f *fakePlatform) GetMergeInfo(ctx context.Context, repo model.RepoInfo) (string, []string, error) {
	return f.merger, f.reviewers, nil
}
func (f *fakePlatform) GetBotComment(ctx context.Context, repo model.RepoInfo) (*model.CommentRepr, error) {
	return nil, nil
}
func (f *fakePlatform) IsActivePR(ctx context.Context, repo model.RepoInfo, author string) (bool, error) {
	return false, nil
}
func (f *fakePlatform) GetComments(ctx context.Context, repo model.RepoInfo) ([]model.CommentRepr, error) {
	return nil, nil
}
func (f *fakePlatform) WriteHandle() string { return "bot" }

// fakeLedger serves ListUnmerged/ListUnfinalized from canned single pages.
type fakeLedger struct {
	unmerged    []model.PrMetadata
	unfinalized []driven.FinalizeCandidate
}

func (l *fakeLedger) CheckInfo(ctx context.Context, repo model.RepoInfo) (model.PRInfo, error) {
	return model.PRInfo{}, nil
}
func (l *fakeLedger) SendInclude(ctx context.Context, pr model.PrMetadata, isMaintainer bool) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendScore(ctx context.Context, pr model.PrMetadata, user string, score uint32) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendMerge(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendStale(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendFinalize(ctx context.Context, fullID string, wasActive bool) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendExclude(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendPause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SendUnpause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	return nil, nil
}
func (l *fakeLedger) ListUnmerged(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error) {
	if page != 0 {
		return nil, nil
	}
	return l.unmerged, nil
}
func (l *fakeLedger) ListUnfinalized(ctx context.Context, page, limit uint64) ([]driven.FinalizeCandidate, error) {
	if page != 0 {
		return nil, nil
	}
	return l.unfinalized, nil
}
func (l *fakeLedger) ListPRs(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error) {
	return nil, nil
}
func (l *fakeLedger) ListUsers(ctx context.Context, page, limit uint64) ([]string, error) {
	return nil, nil
}
func (l *fakeLedger) ListRepos(ctx context.Context, page, limit uint64) ([]model.RepoInfo, error) {
	return nil, nil
}
func (l *fakeLedger) UserInfo(ctx context.Context, login string) (driven.UserInfo, error) {
	return driven.UserInfo{}, nil
}
