package dispatcher

import (
	"context"
	"fmt"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// fakePlatform is an in-memory driven.PlatformClient for dispatcher tests.
type fakePlatform struct {
	writeHandle    string
	botComment     *model.CommentRepr
	comments       []model.CommentRepr
	isActive       bool
	merger         string
	reviewers      []string
	postedReplies  []postedReply
	editedComments []editedComment
	reactions      []reaction
	nextCommentID  int64
}

type postedReply struct {
	repo model.RepoInfo
	text string
}

type editedComment struct {
	repo      model.RepoInfo
	commentID int64
	text      string
}

type reaction struct {
	repo      model.RepoInfo
	commentID int64
	thumbsUp  bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{writeHandle: "bot", nextCommentID: 1000}
}

func (f *fakePlatform) GetEvents(ctx context.Context) ([]model.Event, error) { return nil, nil }

func (f *fakePlatform) PostReply(ctx context.Context, repo model.RepoInfo, text string) (model.CommentRepr, error) {
	f.postedReplies = append(f.postedReplies, postedReply{repo: repo, text: text})
	f.nextCommentID++
	cm := model.CommentRepr{ID: f.nextCommentID, Text: text, CommentID: &f.nextCommentID}
	if f.botComment == nil {
		f.botComment = &cm
	}
	return cm, nil
}

func (f *fakePlatform) EditComment(ctx context.Context, repo model.RepoInfo, commentID int64, text string) error {
	f.editedComments = append(f.editedComments, editedComment{repo: repo, commentID: commentID, text: text})
	return nil
}

func (f *fakePlatform) React(ctx context.Context, repo model.RepoInfo, commentID int64, thumbsUp bool) error {
	f.reactions = append(f.reactions, reaction{repo: repo, commentID: commentID, thumbsUp: thumbsUp})
	return nil
}

func (f *fakePlatform) MarkRead(ctx context.Context, n model.Notification) error { return nil }

func (f *fakePlatform) RateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error) {
	return nil, nil
}

func (f *fakePlatform) GetPR(ctx context.Context, repo model.RepoInfo) (model.PrMetadata, error) {
	return model.PrMetadata{RepoInfo: repo}, nil
}

func (f *fakePlatform) GetMergeInfo(ctx context.Context, repo model.RepoInfo) (string, []string, error) {
	return f.merger, f.reviewers, nil
}

func (f *fakePlatform) GetBotComment(ctx context.Context, repo model.RepoInfo) (*model.CommentRepr, error) {
	return f.botComment, nil
}

func (f *fakePlatform) IsActivePR(ctx context.Context, repo model.RepoInfo, author string) (bool, error) {
	return f.isActive, nil
}

func (f *fakePlatform) GetComments(ctx context.Context, repo model.RepoInfo) ([]model.CommentRepr, error) {
	return f.comments, nil
}

func (f *fakePlatform) WriteHandle() string { return f.writeHandle }

// fakeLedger is an in-memory driven.LedgerClient for dispatcher tests.
type fakeLedger struct {
	info          model.PRInfo
	users         map[string]bool
	includeCalls  []string
	scoreCalls    []fakeScoreCall
	mergeCalls    []string
	staleCalls    []string
	finalizeCalls []string
	excludeCalls  []string
	pauseCalls    []string
	unpauseCalls  []string
	failNextScore bool
}

type fakeScoreCall struct {
	fullID string
	user   string
	score  uint32
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{users: map[string]bool{}}
}

func (l *fakeLedger) CheckInfo(ctx context.Context, repo model.RepoInfo) (model.PRInfo, error) {
	return l.info, nil
}

func (l *fakeLedger) SendInclude(ctx context.Context, pr model.PrMetadata, isMaintainer bool) ([]model.DomainEvent, error) {
	l.includeCalls = append(l.includeCalls, pr.RepoInfo.FullID())
	return nil, nil
}

func (l *fakeLedger) SendScore(ctx context.Context, pr model.PrMetadata, user string, score uint32) ([]model.DomainEvent, error) {
	if l.failNextScore {
		return nil, fmt.Errorf("injected score failure")
	}
	l.scoreCalls = append(l.scoreCalls, fakeScoreCall{fullID: pr.RepoInfo.FullID(), user: user, score: score})
	return nil, nil
}

func (l *fakeLedger) SendMerge(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	l.mergeCalls = append(l.mergeCalls, pr.RepoInfo.FullID())
	return nil, nil
}

func (l *fakeLedger) SendStale(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	l.staleCalls = append(l.staleCalls, pr.RepoInfo.FullID())
	return nil, nil
}

func (l *fakeLedger) SendFinalize(ctx context.Context, fullID string, wasActive bool) ([]model.DomainEvent, error) {
	l.finalizeCalls = append(l.finalizeCalls, fullID)
	return nil, nil
}

func (l *fakeLedger) SendExclude(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	l.excludeCalls = append(l.excludeCalls, pr.RepoInfo.FullID())
	return nil, nil
}

func (l *fakeLedger) SendPause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	l.pauseCalls = append(l.pauseCalls, repo.FullID())
	l.info.PausedRepo = true
	l.info.Paused = true
	return nil, nil
}

func (l *fakeLedger) SendUnpause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	l.unpauseCalls = append(l.unpauseCalls, repo.FullID())
	l.info.PausedRepo = false
	l.info.Paused = false
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
	return driven.UserInfo{Login: login, Registered: l.users[login]}, nil
}

// fakeMessages is a deterministic driven.MessageRenderer for tests.
type fakeMessages struct {
	rendered []renderedMessage
}

type renderedMessage struct {
	category driven.MessageCategory
	vars     map[string]string
}

func (m *fakeMessages) Render(category driven.MessageCategory, vars map[string]string) string {
	m.rendered = append(m.rendered, renderedMessage{category: category, vars: vars})
	return string(category)
}
