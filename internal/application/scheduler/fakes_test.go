package scheduler

import (
	"context"
	"sync"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// fakePlatform records MarkRead calls and serves a single canned GetPR
// result; every other method is a no-op satisfying driven.PlatformClient.
type fakePlatform struct {
	mu         sync.Mutex
	events     []model.Event
	markedRead []int64
	prInfo     model.PrMetadata
}

func (f *fakePlatform) GetEvents(ctx context.Context) ([]model.Event, error) {
	return f.events, nil
}
func (f *fakePlatform) PostReply(ctx context.Context, repo model.RepoInfo, text string) (model.CommentRepr, error) {
	return model.CommentRepr{}, nil
}
func (f *fakePlatform) EditComment(ctx context.Context, repo model.RepoInfo, commentID int64, text string) error {
	return nil
}
func (f *fakePlatform) React(ctx context.Context, repo model.RepoInfo, commentID int64, thumbsUp bool) error {
	return nil
}
func (f *fakePlatform) MarkRead(ctx context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, n.ID)
	return nil
}
func (f *fakePlatform) RateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error) {
	return nil, nil
}
func (f *fakePlatform) GetPR(ctx context.Context, repo model.RepoInfo) (model.PrMetadata, error) {
	return f.prInfo, nil
}
func (f *fakePlatform) GetMergeInfo(ctx context.Context, repo model.RepoInfo) (string, []string, error) {
	return "", nil, nil
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

// fakeLedger serves a canned PRInfo from CheckInfo and records nothing else
// interesting for scheduler-level tests; the dispatcher's own test suite
// covers handler-level ledger interaction in depth.
type fakeLedger struct {
	mu   sync.Mutex
	info model.PRInfo
}

func (l *fakeLedger) CheckInfo(ctx context.Context, repo model.RepoInfo) (model.PRInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.info, nil
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
	return nil, nil
}
func (l *fakeLedger) ListUnfinalized(ctx context.Context, page, limit uint64) ([]driven.FinalizeCandidate, error) {
	return nil, nil
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

// fakeMessages renders every category to its own name, deterministically.
type fakeMessages struct{}

func (fakeMessages) Render(category driven.MessageCategory, vars map[string]string) string {
	return string(category)
}
