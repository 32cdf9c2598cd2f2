// Package platform implements the driven.PlatformClient port against
// GitHub using the go-github library, with httpcache (ETag conditional
// caching) underneath go-github-ratelimit (secondary rate-limit backoff)
// underneath go-github itself. Notification and comment pages are
// re-polled every tick, so conditional requests materially cut rate-limit
// burn.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"

	"github.com/race-of-sloths/sloth-bot-go/internal/application/parser"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PlatformClient = (*Client)(nil)

// Client implements driven.PlatformClient. It holds one write credential
// (used for every mutation and as the "current user" identity) and N read
// credentials rotated round-robin for polling.
type Client struct {
	write        *gh.Client
	writeHandle  string
	reads        []*gh.Client
	readHandles  []string
	ownHandles   map[string]bool
	readCounter  atomic.Uint64
	writeCounter atomic.Uint64 // counts mutating requests; not read anywhere.
}

// NewClient builds a Client from a write token and one or more read tokens.
// Each credential's "current user" login is resolved immediately so the
// union of logins is available as the backstop set.
func NewClient(ctx context.Context, writeToken string, readTokens []string) (*Client, error) {
	if len(readTokens) == 0 {
		return nil, fmt.Errorf("platform: at least one read credential is required")
	}

	write := newTransport(writeToken)
	writeUser, _, err := write.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("resolving write credential identity: %w", err)
	}

	c := &Client{
		write:       write,
		writeHandle: writeUser.GetLogin(),
		ownHandles:  map[string]bool{strings.ToLower(writeUser.GetLogin()): true},
	}

	for _, token := range readTokens {
		readClient := newTransport(token)
		user, _, err := readClient.Users.Get(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("resolving read credential identity: %w", err)
		}
		c.reads = append(c.reads, readClient)
		c.readHandles = append(c.readHandles, user.GetLogin())
		c.ownHandles[strings.ToLower(user.GetLogin())] = true
	}

	return c, nil
}

// NewClientWithHTTPClient creates a Client whose write and read credentials
// all share the given http.Client and base URL, with credential identities
// fixed up front instead of resolved over the network. This constructor is
// intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, writeHandle string, readHandles []string) (*Client, error) {
	if len(readHandles) == 0 {
		return nil, fmt.Errorf("platform: at least one read credential is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	newGH := func() *gh.Client {
		client := gh.NewClient(httpClient)
		client.BaseURL = u
		return client
	}

	c := &Client{
		write:       newGH(),
		writeHandle: writeHandle,
		ownHandles:  map[string]bool{strings.ToLower(writeHandle): true},
	}
	for _, handle := range readHandles {
		c.reads = append(c.reads, newGH())
		c.readHandles = append(c.readHandles, handle)
		c.ownHandles[strings.ToLower(handle)] = true
	}
	return c, nil
}

// newTransport builds the shared transport stack for one credential.
func newTransport(token string) *gh.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	return gh.NewClient(rateLimitClient).WithAuthToken(token)
}

// WriteHandle returns the write credential's login.
func (c *Client) WriteHandle() string {
	return c.writeHandle
}

// nextReadClient picks the next read credential by atomic
// fetch-and-increment, counter mod N.
func (c *Client) nextReadClient() (int, *gh.Client) {
	idx := int(c.readCounter.Add(1)-1) % len(c.reads)
	return idx, c.reads[idx]
}

// GetEvents lists notifications on the next read credential and builds an
// Event for every one the platform client can interpret.
func (c *Client) GetEvents(ctx context.Context) ([]model.Event, error) {
	readIdx, client := c.nextReadClient()

	opts := &gh.NotificationListOptions{
		All:           false,
		Participating: true,
		ListOptions:   gh.ListOptions{PerPage: 50},
	}

	var all []*gh.Notification
	for {
		page, resp, err := client.Activity.ListNotifications(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing notifications: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	var events []model.Event
	for _, n := range all {
		notification := model.Notification{
			ID:            int64FromID(n.GetID()),
			ReadClientID:  readIdx,
			Reason:        model.NotificationReason(n.GetReason()),
			SubjectType:   model.SubjectType(n.GetSubject().GetType()),
			SubjectAPIURL: n.GetSubject().GetURL(),
		}

		if notification.Reason != model.NotificationReasonMention && notification.Reason != model.NotificationReasonStateChange {
			c.markReadByIdx(ctx, readIdx, notification)
			continue
		}

		var (
			perNotification []model.Event
			err             error
		)

		switch notification.SubjectType {
		case model.SubjectTypePullRequest:
			perNotification, err = c.parsePREvent(ctx, readIdx, notification, n)
		case model.SubjectTypeIssue:
			perNotification, err = c.parseIssueEvent(ctx, readIdx, notification, n)
		default:
			c.markReadByIdx(ctx, readIdx, notification)
			continue
		}

		if err != nil {
			slog.Warn("platform: skipping notification", "id", notification.ID, "error", err)
			continue
		}

		if len(perNotification) == 0 {
			c.markReadByIdx(ctx, readIdx, notification)
			continue
		}

		events = append(events, perNotification...)
	}

	return events, nil
}

// int64FromID is a defensive helper: go-github's Notification.ID is a
// string in practice always numeric; a non-numeric ID is a malformed
// response and yields 0 rather than a panic.
func int64FromID(raw string) int64 {
	var n int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

func repoFromNotification(n *gh.Notification) (model.RepoInfo, int, error) {
	repo := n.GetRepository()
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()
	if owner == "" || name == "" {
		return model.RepoInfo{}, 0, fmt.Errorf("notification missing repository owner/name")
	}
	number, err := numberFromSubjectURL(n.GetSubject().GetURL())
	if err != nil {
		return model.RepoInfo{}, 0, err
	}
	return model.RepoInfo{Owner: owner, Repo: name}, number, nil
}

func numberFromSubjectURL(url string) (int, error) {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0, fmt.Errorf("cannot extract number from subject url %q", url)
	}
	raw := url[idx+1:]
	n := int64FromID(raw)
	if n == 0 && raw != "0" {
		return 0, fmt.Errorf("cannot extract number from subject url %q", url)
	}
	return int(n), nil
}

// parsePREvent reconstructs the command and action stream for a
// pull-request notification.
func (c *Client) parsePREvent(ctx context.Context, readIdx int, notification model.Notification, n *gh.Notification) ([]model.Event, error) {
	repoInfo, number, err := repoFromNotification(n)
	if err != nil {
		return nil, err
	}
	repoInfo.Number = number

	pr, err := c.GetPR(ctx, repoInfo)
	if err != nil {
		return nil, err
	}

	if pr.Closed && !pr.IsMerged() {
		c.markReadByIdx(ctx, readIdx, notification)
		return []model.Event{{
			Source:       model.EventSourceAction,
			Action:       model.Action{Kind: model.ActionStale},
			ActionPR:     pr,
			Notification: notification,
			EventTime:    pr.Updated,
		}}, nil
	}

	comments, err := c.GetComments(ctx, repoInfo)
	if err != nil {
		return nil, err
	}

	statusComment := firstCommentBy(comments, c.writeHandle)

	var commands []model.Event
	for i := len(comments) - 1; i >= 0; i-- {
		cm := comments[i]
		if c.ownHandles[strings.ToLower(cm.User.Login)] {
			break // backstop: stop at the first own-handle comment, newest-first.
		}
		if verb, args, ok := parser.Extract(c.botHandleFor(cm), cm.Text); ok {
			cmd := parser.ParsePR(verb, args)
			trigger := cm
			commands = append(commands, model.Event{
				Source:         model.EventSourcePRCommand,
				PRCommand:      cmd,
				PRCommandPR:    pr,
				PRSender:       cm.User,
				Notification:   notification,
				TriggerComment: &trigger,
				Comment:        statusComment,
				EventTime:      cm.Timestamp,
			})
		}
	}
	reverse(commands)

	if cmd, ok := parser.ParseBody(c.writeHandle, pr.Body); ok {
		commands = append([]model.Event{{
			Source:       model.EventSourcePRCommand,
			PRCommand:    cmd,
			PRCommandPR:  pr,
			PRSender:     pr.Author,
			Notification: notification,
			Comment:      statusComment,
			EventTime:    pr.Updated,
		}}, commands...)
	}

	if pr.IsMerged() {
		merger, reviewers, err := c.GetMergeInfo(ctx, repoInfo)
		if err != nil {
			return nil, err
		}
		commands = append(commands, model.Event{
			Source:       model.EventSourceAction,
			Action:       model.Action{Kind: model.ActionMerge, Merger: merger, Reviewers: reviewers},
			ActionPR:     pr,
			Notification: notification,
			EventTime:    *pr.Merged,
		})
	}

	return commands, nil
}

// botHandleFor always returns the write handle: the read credentials only
// poll, so a mention is always addressed "@<write-handle>" even though the
// full own-handle set serves as the backstop.
func (c *Client) botHandleFor(model.CommentRepr) string {
	return c.writeHandle
}

func firstCommentBy(comments []model.CommentRepr, login string) *model.CommentRepr {
	for i := range comments {
		if strings.EqualFold(comments[i].User.Login, login) {
			return &comments[i]
		}
	}
	return nil
}

func reverse(events []model.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}

// parseIssueEvent reconstructs the command stream for an issue
// notification.
func (c *Client) parseIssueEvent(ctx context.Context, readIdx int, notification model.Notification, n *gh.Notification) ([]model.Event, error) {
	repoInfo, number, err := repoFromNotification(n)
	if err != nil {
		return nil, err
	}
	repoInfo.Number = number

	owner, repo := repoInfo.Owner, repoInfo.Repo
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	var comments []model.CommentRepr
	for {
		page, resp, err := c.reads[readIdx].Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, cm := range page {
			comments = append(comments, mapIssueComment(cm))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	var events []model.Event
	for i := len(comments) - 1; i >= 0; i-- {
		cm := comments[i]
		if c.ownHandles[strings.ToLower(cm.User.Login)] {
			break
		}
		verb, _, ok := parser.Extract(c.writeHandle, cm.Text)
		if !ok {
			continue
		}
		cmd, ok := parser.ParseIssue(verb)
		if !ok {
			continue
		}
		trigger := cm
		events = append(events, model.Event{
			Source:           model.EventSourceIssueCommand,
			IssueCommand:     cmd,
			IssueCommandRepo: repoInfo,
			IssueSender:      cm.User,
			Notification:     notification,
			TriggerComment:   &trigger,
			EventTime:        cm.Timestamp,
		})
	}
	reverse(events)

	return events, nil
}

func (c *Client) markReadByIdx(ctx context.Context, readIdx int, n model.Notification) {
	if readIdx != n.ReadClientID {
		panic("platform: mark_read credential mismatch — programming invariant violated")
	}
	if err := c.MarkRead(ctx, n); err != nil {
		slog.Error("platform: failed to mark notification read", "id", n.ID, "error", err)
	}
}

// MarkRead marks a notification read using the credential that produced it.
func (c *Client) MarkRead(ctx context.Context, n model.Notification) error {
	if n.ReadClientID < 0 || n.ReadClientID >= len(c.reads) {
		return fmt.Errorf("platform: notification read_client_id %d out of range", n.ReadClientID)
	}
	_, err := c.reads[n.ReadClientID].Activity.MarkThreadRead(ctx, fmt.Sprintf("%d", n.ID))
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", n.ID, err)
	}
	return nil
}

// GetPR fetches the current platform state of a pull request.
func (c *Client) GetPR(ctx context.Context, repo model.RepoInfo) (model.PrMetadata, error) {
	pr, _, err := c.write.PullRequests.Get(ctx, repo.Owner, repo.Repo, repo.Number)
	if err != nil {
		return model.PrMetadata{}, fmt.Errorf("fetching PR %s: %w", repo.FullID(), err)
	}
	if pr.GetUser() == nil {
		return model.PrMetadata{}, fmt.Errorf("PR %s missing author", repo.FullID())
	}

	meta := model.PrMetadata{
		RepoInfo: repo,
		Author: model.User{
			Login:       pr.GetUser().GetLogin(),
			Association: model.Association(pr.GetAuthorAssociation()),
		},
		Created: pr.GetCreatedAt().Time,
		Updated: pr.GetUpdatedAt().Time,
		Body:    pr.GetBody(),
		Closed:  pr.GetState() == "closed",
	}
	if mergedAt := pr.GetMergedAt(); !mergedAt.IsZero() {
		t := mergedAt.Time
		meta.Merged = &t
	}
	return meta, nil
}

// GetComments returns every issue comment and review on the PR merged into
// chronological order.
func (c *Client) GetComments(ctx context.Context, repo model.RepoInfo) ([]model.CommentRepr, error) {
	var all []model.CommentRepr

	issueOpts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		page, resp, err := c.write.Issues.ListComments(ctx, repo.Owner, repo.Repo, repo.Number, issueOpts)
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s: %w", repo.FullID(), err)
		}
		for _, cm := range page {
			all = append(all, mapIssueComment(cm))
		}
		if resp.NextPage == 0 {
			break
		}
		issueOpts.Page = resp.NextPage
	}

	reviewOpts := &gh.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.write.PullRequests.ListReviews(ctx, repo.Owner, repo.Repo, repo.Number, reviewOpts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s: %w", repo.FullID(), err)
		}
		for _, r := range page {
			if cm, ok := mapReview(r); ok {
				all = append(all, cm)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	sortByTimestamp(all)
	return all, nil
}

func sortByTimestamp(comments []model.CommentRepr) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Timestamp.Before(comments[j].Timestamp)
	})
}

func mapIssueComment(cm *gh.IssueComment) model.CommentRepr {
	id := cm.GetID()
	ts := cm.GetUpdatedAt().Time
	if ts.IsZero() {
		ts = cm.GetCreatedAt().Time
	}
	return model.CommentRepr{
		ID: id,
		User: model.User{
			Login:       cm.GetUser().GetLogin(),
			Association: model.Association(cm.GetAuthorAssociation()),
		},
		Timestamp: ts,
		Text:      cm.GetBody(),
		CommentID: gh.Ptr(id),
	}
}

// mapReview maps a review to a CommentRepr. A review with no user is
// malformed and is dropped.
func mapReview(r *gh.PullRequestReview) (model.CommentRepr, bool) {
	if r.GetUser() == nil {
		return model.CommentRepr{}, false
	}
	ts := r.GetSubmittedAt().Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return model.CommentRepr{
		ID: r.GetID(),
		User: model.User{
			Login:       r.GetUser().GetLogin(),
			Association: model.AssociationContributor,
		},
		Timestamp: ts,
		Text:      r.GetBody(),
		CommentID: nil,
	}, true
}

// GetMergeInfo reports who merged the PR and the deduplicated logins of
// reviews in approved or pending state.
func (c *Client) GetMergeInfo(ctx context.Context, repo model.RepoInfo) (merger string, reviewers []string, err error) {
	pr, _, err := c.write.PullRequests.Get(ctx, repo.Owner, repo.Repo, repo.Number)
	if err != nil {
		return "", nil, fmt.Errorf("fetching PR %s for merge: %w", repo.FullID(), err)
	}
	merger = pr.GetMergedBy().GetLogin()

	opts := &gh.ListOptions{PerPage: 100}
	seen := map[string]bool{}
	for {
		reviews, resp, err := c.write.PullRequests.ListReviews(ctx, repo.Owner, repo.Repo, repo.Number, opts)
		if err != nil {
			return "", nil, fmt.Errorf("listing reviews for %s: %w", repo.FullID(), err)
		}
		for _, r := range reviews {
			state := strings.ToUpper(r.GetState())
			if state != "APPROVED" && state != "PENDING" {
				continue
			}
			login := r.GetUser().GetLogin()
			if login == "" || seen[login] {
				continue
			}
			seen[login] = true
			reviewers = append(reviewers, login)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return merger, reviewers, nil
}

// PostReply posts a new top-level comment.
func (c *Client) PostReply(ctx context.Context, repo model.RepoInfo, text string) (model.CommentRepr, error) {
	c.writeCounter.Add(1)
	comment, _, err := c.write.Issues.CreateComment(ctx, repo.Owner, repo.Repo, repo.Number, &gh.IssueComment{Body: gh.Ptr(text)})
	if err != nil {
		return model.CommentRepr{}, fmt.Errorf("posting reply on %s: %w", repo.FullID(), err)
	}
	return mapIssueComment(comment), nil
}

// EditComment overwrites the body of an existing comment.
func (c *Client) EditComment(ctx context.Context, repo model.RepoInfo, commentID int64, text string) error {
	c.writeCounter.Add(1)
	_, _, err := c.write.Issues.EditComment(ctx, repo.Owner, repo.Repo, commentID, &gh.IssueComment{Body: gh.Ptr(text)})
	if err != nil {
		return fmt.Errorf("editing comment %d on %s: %w", commentID, repo.FullID(), err)
	}
	return nil
}

// React adds a reaction to a comment.
func (c *Client) React(ctx context.Context, repo model.RepoInfo, commentID int64, thumbsUp bool) error {
	if !thumbsUp {
		return fmt.Errorf("platform: only thumbs-up reactions are supported")
	}
	c.writeCounter.Add(1)
	_, _, err := c.write.Reactions.CreateIssueCommentReaction(ctx, repo.Owner, repo.Repo, commentID, "+1")
	if err != nil {
		return fmt.Errorf("reacting to comment %d on %s: %w", commentID, repo.FullID(), err)
	}
	return nil
}

// RateLimits reports remaining budget for the write credential and every
// read credential, in that order.
func (c *Client) RateLimits(ctx context.Context) ([]model.RateLimitSnapshot, error) {
	var out []model.RateLimitSnapshot

	writeLimits, _, err := c.write.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching write credential rate limit: %w", err)
	}
	out = append(out, snapshotFromCore(writeLimits, "write"))

	for i, r := range c.reads {
		limits, _, err := r.RateLimit.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching read credential %d rate limit: %w", i, err)
		}
		out = append(out, snapshotFromCore(limits, fmt.Sprintf("read-%d", i)))
	}

	return out, nil
}

func snapshotFromCore(limits *gh.RateLimits, label string) model.RateLimitSnapshot {
	core := limits.GetCore()
	return model.RateLimitSnapshot{
		CredentialLabel: label,
		Limit:           core.Limit,
		Remaining:       core.Remaining,
		Used:            core.Limit - core.Remaining,
	}
}

// GetBotComment paginates comments until one authored by the write
// credential is found.
func (c *Client) GetBotComment(ctx context.Context, repo model.RepoInfo) (*model.CommentRepr, error) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		page, resp, err := c.write.Issues.ListComments(ctx, repo.Owner, repo.Repo, repo.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s: %w", repo.FullID(), err)
		}
		if found := firstCommentBy(mapAll(page), c.writeHandle); found != nil {
			return found, nil
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func mapAll(page []*gh.IssueComment) []model.CommentRepr {
	out := make([]model.CommentRepr, 0, len(page))
	for _, cm := range page {
		out = append(out, mapIssueComment(cm))
	}
	return out
}

// IsActivePR reports whether at least two distinct users, other than the
// bot's own handles and the PR author, commented on or reviewed the PR.
func (c *Client) IsActivePR(ctx context.Context, repo model.RepoInfo, author string) (bool, error) {
	comments, err := c.GetComments(ctx, repo)
	if err != nil {
		return false, err
	}

	distinct := map[string]bool{}
	for _, cm := range comments {
		login := strings.ToLower(cm.User.Login)
		if login == strings.ToLower(author) || c.ownHandles[login] {
			continue
		}
		distinct[login] = true
	}
	return len(distinct) >= 2, nil
}
