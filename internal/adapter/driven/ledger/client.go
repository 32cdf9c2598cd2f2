// Package ledger implements the driven.LedgerClient port against a NEAR
// Protocol smart contract using its JSON-RPC interface directly over
// net/http and encoding/json: two call shapes (read-only view, signed
// function call) against one endpoint do not justify an SDK dependency.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
	"github.com/race-of-sloths/sloth-bot-go/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LedgerClient = (*Client)(nil)

const defaultTimeout = 30 * time.Second

// Client talks to a NEAR RPC endpoint on behalf of one contract account.
// It stores the signer's secret key but does not sign anything itself:
// mutating calls carry the signer account id, and signing is left to the
// transport of the configured http.Client.
type Client struct {
	httpClient *http.Client
	rpcURL     string
	contract   string
	accountID  string
	secretKey  string
	mainnet    bool
}

// Option configures a Client beyond its required fields.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client, used by tests to point
// the client at an httptest server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRPCURL overrides the resolved mainnet/testnet RPC endpoint.
func WithRPCURL(url string) Option {
	return func(c *Client) { c.rpcURL = url }
}

// NewClient builds a Client for the given contract account, acting as
// accountID. secretKey is stored on the Client but not used by it.
func NewClient(contract, accountID, secretKey string, mainnet bool, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		rpcURL:     defaultRPCURL(mainnet),
		contract:   contract,
		accountID:  accountID,
		secretKey:  secretKey,
		mainnet:    mainnet,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultRPCURL(mainnet bool) string {
	if mainnet {
		return "https://rpc.mainnet.near.org"
	}
	return "https://rpc.testnet.near.org"
}

// rpcRequest is the JSON-RPC 2.0 envelope every call and view uses. The id is
// a fresh uuid per request purely for request/response correlation in logs;
// the RPC itself does not require uniqueness.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Name    string          `json:"name"`
	Cause   json.RawMessage `json:"cause"`
	Message string          `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("near rpc error %s: %s", e.Name, e.Message)
}

// do executes a single JSON-RPC call and decodes its result into out. A
// non-nil out must be a pointer.
func (c *Client) do(ctx context.Context, method string, params any, out any) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling near rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building near rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling near rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding near rpc response for %s: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decoding near rpc result for %s: %w", method, err)
	}
	return nil
}

// viewResult is the shape query.call_function returns: the contract's
// JSON-encoded return value as an array of byte values (not a base64
// string, so it cannot decode straight into []byte) plus gas/block
// metadata this client does not need.
type viewResult struct {
	Result []int `json:"result"`
}

func (v viewResult) bytes() []byte {
	out := make([]byte, len(v.Result))
	for i, b := range v.Result {
		out[i] = byte(b)
	}
	return out
}

// callView invokes a read-only contract method and decodes its return value
// into out.
func (c *Client) callView(ctx context.Context, method string, args any, out any) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshaling view args for %s: %w", method, err)
	}

	params := map[string]any{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   c.contract,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(argsJSON),
	}

	var result viewResult
	if err := c.do(ctx, "query", params, &result); err != nil {
		return fmt.Errorf("view %s: %w", method, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.bytes(), out); err != nil {
		return fmt.Errorf("decoding view result for %s: %w", method, err)
	}
	return nil
}

// txOutcome is the subset of broadcast_tx_commit's response this client
// reads: the contract logs, which encode DomainEvents as JSON lines.
type txOutcome struct {
	Status struct {
		SuccessValue *string `json:"SuccessValue"`
		Failure      any     `json:"Failure"`
	} `json:"status"`
	Transaction struct {
		Hash string `json:"hash"`
	} `json:"transaction"`
	TransactionOutcome struct {
		Outcome struct {
			Logs []string `json:"logs"`
		} `json:"outcome"`
	} `json:"transaction_outcome"`
	ReceiptsOutcome []struct {
		Outcome struct {
			Logs []string `json:"logs"`
		} `json:"outcome"`
	} `json:"receipts_outcome"`
}

// callMutate broadcasts a function call to the contract and returns the
// DomainEvents decoded from its logs. Transaction signing is delegated to
// a signer middleware injected via the http.Client transport, which
// attaches what broadcast_tx_commit needs to act on this account's behalf.
func (c *Client) callMutate(ctx context.Context, method string, args any) ([]model.DomainEvent, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshaling call args for %s: %w", method, err)
	}

	params := map[string]any{
		"signer_id":   c.accountID,
		"receiver_id": c.contract,
		"method_name": method,
		"args_base64": base64.StdEncoding.EncodeToString(argsJSON),
		"finality":    "final",
	}

	var outcome txOutcome
	if err := c.do(ctx, "broadcast_tx_commit", params, &outcome); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if outcome.Status.Failure != nil {
		return nil, fmt.Errorf("near transaction for %s failed: %v", method, outcome.Status.Failure)
	}

	return decodeLogs(method, outcome.TransactionOutcome.Outcome.Logs, receiptLogs(outcome.ReceiptsOutcome))
}

func receiptLogs(receipts []struct {
	Outcome struct {
		Logs []string `json:"logs"`
	} `json:"outcome"`
}) []string {
	var logs []string
	for _, r := range receipts {
		logs = append(logs, r.Outcome.Logs...)
	}
	return logs
}

// decodeLogs turns every contract log line that matches the
// "EVENT_JSON:{...}" convention into a DomainEvent; any other log line is
// ignored.
func decodeLogs(method string, logSets ...[]string) ([]model.DomainEvent, error) {
	const prefix = "EVENT_JSON:"

	var events []model.DomainEvent
	for _, logs := range logSets {
		for _, line := range logs {
			if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
				continue
			}
			payload := []byte(line[len(prefix):])

			var probe struct {
				Event string `json:"event"`
			}
			if err := json.Unmarshal(payload, &probe); err != nil {
				slog.Warn("ledger: skipping malformed event log", "method", method, "error", err)
				continue
			}

			events = append(events, model.DomainEvent{
				Kind:    domainEventKind(probe.Event),
				Payload: payload,
			})
		}
	}
	return events, nil
}

func domainEventKind(event string) model.DomainEventKind {
	switch event {
	case "streak_increased":
		return model.DomainEventStreakIncreased
	case "new_sloth":
		return model.DomainEventNewSloth
	default:
		return model.DomainEventKind(event)
	}
}

// CheckInfo calls the contract's check_info view.
func (c *Client) CheckInfo(ctx context.Context, repo model.RepoInfo) (model.PRInfo, error) {
	var raw struct {
		AllowedOrg  bool         `json:"allowed_org"`
		AllowedRepo bool         `json:"allowed_repo"`
		Exist       bool         `json:"exist"`
		Merged      bool         `json:"merged"`
		Executed    bool         `json:"executed"`
		Excluded    bool         `json:"excluded"`
		Paused      bool         `json:"paused"`
		PausedRepo  bool         `json:"paused_repo"`
		Votes       []model.Vote `json:"votes"`
		Blocked     bool         `json:"blocked_repo"`
	}

	args := map[string]any{
		"organization": repo.Owner,
		"repo":         repo.Repo,
		"issue_id":     repo.Number,
	}
	if err := c.callView(ctx, "check_info", args, &raw); err != nil {
		return model.PRInfo{}, err
	}

	return model.PRInfo{
		Exist:       raw.Exist,
		Merged:      raw.Merged,
		Executed:    raw.Executed,
		Excluded:    raw.Excluded,
		Paused:      raw.Paused,
		PausedRepo:  raw.PausedRepo,
		BlockedRepo: raw.Blocked,
		AllowedRepo: raw.AllowedRepo && raw.AllowedOrg,
		Votes:       raw.Votes,
	}, nil
}

// SendInclude calls the contract's sloth_include call.
func (c *Client) SendInclude(ctx context.Context, pr model.PrMetadata, isMaintainer bool) ([]model.DomainEvent, error) {
	args := map[string]any{
		"organization":     pr.RepoInfo.Owner,
		"repo":             pr.RepoInfo.Repo,
		"pr_number":        pr.RepoInfo.Number,
		"user":             pr.Author.Login,
		"started_at":       pr.Created.UnixNano(),
		"override_exclude": isMaintainer,
	}
	return c.callMutate(ctx, "sloth_include", args)
}

// SendScore calls the contract's sloth_scored call.
func (c *Client) SendScore(ctx context.Context, pr model.PrMetadata, user string, score uint32) ([]model.DomainEvent, error) {
	args := map[string]any{
		"pr_id": pr.RepoInfo.FullID(),
		"user":  user,
		"score": score,
	}
	return c.callMutate(ctx, "sloth_scored", args)
}

// SendMerge calls the contract's sloth_merged call.
func (c *Client) SendMerge(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	if !pr.IsMerged() {
		return nil, fmt.Errorf("ledger: PR %s is not merged", pr.RepoInfo.FullID())
	}
	args := map[string]any{
		"pr_id":     pr.RepoInfo.FullID(),
		"merged_at": pr.Merged.UnixNano(),
	}
	return c.callMutate(ctx, "sloth_merged", args)
}

// SendStale calls the contract's sloth_stale call.
func (c *Client) SendStale(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	args := map[string]any{"pr_id": pr.RepoInfo.FullID()}
	return c.callMutate(ctx, "sloth_stale", args)
}

// SendFinalize calls the contract's sloth_finalize call.
func (c *Client) SendFinalize(ctx context.Context, fullID string, wasActive bool) ([]model.DomainEvent, error) {
	args := map[string]any{
		"pr_id":      fullID,
		"was_active": wasActive,
	}
	return c.callMutate(ctx, "sloth_finalize", args)
}

// SendExclude calls the contract's sloth_exclude call.
func (c *Client) SendExclude(ctx context.Context, pr model.PrMetadata) ([]model.DomainEvent, error) {
	args := map[string]any{"pr_id": pr.RepoInfo.FullID()}
	return c.callMutate(ctx, "sloth_exclude", args)
}

// SendPause calls the contract's exclude_repo call.
func (c *Client) SendPause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	args := map[string]any{"organization": repo.Owner, "repo": repo.Repo}
	return c.callMutate(ctx, "exclude_repo", args)
}

// SendUnpause calls the contract's include_repo call.
func (c *Client) SendUnpause(ctx context.Context, repo model.RepoInfo) ([]model.DomainEvent, error) {
	args := map[string]any{"organization": repo.Owner, "repo": repo.Repo}
	return c.callMutate(ctx, "include_repo", args)
}

// ListUnmerged calls the contract's unmerged_prs view.
func (c *Client) ListUnmerged(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error) {
	var raw []prDataView
	if err := c.callView(ctx, "unmerged_prs", map[string]any{"page": page, "limit": limit}, &raw); err != nil {
		return nil, err
	}
	return mapPRDataViews(raw), nil
}

// ListUnfinalized calls the contract's unfinalized_prs view,
// decorated with the ledger's precomputed ready-to-move timestamp.
func (c *Client) ListUnfinalized(ctx context.Context, page, limit uint64) ([]driven.FinalizeCandidate, error) {
	var raw []struct {
		prDataView
		ReadyToMoveTimestamp *int64 `json:"ready_to_move_timestamp"`
		WasActive            bool   `json:"was_active"`
	}
	if err := c.callView(ctx, "unfinalized_prs", map[string]any{"page": page, "limit": limit}, &raw); err != nil {
		return nil, err
	}

	out := make([]driven.FinalizeCandidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, driven.FinalizeCandidate{
			PR:                   r.prDataView.toPrMetadata(),
			ReadyToMoveTimestamp: r.ReadyToMoveTimestamp,
			WasActive:            r.WasActive,
		})
	}
	return out, nil
}

// ListPRs calls the contract's all_prs view, kept for
// operational tooling.
func (c *Client) ListPRs(ctx context.Context, page, limit uint64) ([]model.PrMetadata, error) {
	var raw []prDataView
	if err := c.callView(ctx, "all_prs", map[string]any{"page": page, "limit": limit}, &raw); err != nil {
		return nil, err
	}
	return mapPRDataViews(raw), nil
}

// ListUsers calls the contract's users view.
func (c *Client) ListUsers(ctx context.Context, page, limit uint64) ([]string, error) {
	var raw []string
	if err := c.callView(ctx, "users", map[string]any{"page": page, "limit": limit}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ListRepos calls the contract's repos view.
func (c *Client) ListRepos(ctx context.Context, page, limit uint64) ([]model.RepoInfo, error) {
	var raw []struct {
		Organization string `json:"organization"`
		Repo         string `json:"repo"`
	}
	if err := c.callView(ctx, "repos", map[string]any{"page": page, "limit": limit}, &raw); err != nil {
		return nil, err
	}
	out := make([]model.RepoInfo, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.RepoInfo{Owner: r.Organization, Repo: r.Repo})
	}
	return out, nil
}

// UserInfo calls the contract's user_info view.
func (c *Client) UserInfo(ctx context.Context, login string) (driven.UserInfo, error) {
	var raw struct {
		Registered bool `json:"registered"`
	}
	if err := c.callView(ctx, "user_info", map[string]any{"user": login}, &raw); err != nil {
		return driven.UserInfo{}, err
	}
	return driven.UserInfo{Login: login, Registered: raw.Registered}, nil
}

// prDataView is the wire shape of a PR record the contract returns from its
// list-style views.
type prDataView struct {
	Organization string `json:"organization"`
	Repo         string `json:"repo"`
	Number       int    `json:"number"`
	Author       string `json:"author"`
	CreatedAt    int64  `json:"created_at"`
	MergedAt     *int64 `json:"merged_at"`
}

func (r prDataView) toPrMetadata() model.PrMetadata {
	meta := model.PrMetadata{
		RepoInfo: model.RepoInfo{Owner: r.Organization, Repo: r.Repo, Number: r.Number},
		Author:   model.User{Login: r.Author},
		Created:  time.Unix(0, r.CreatedAt),
	}
	if r.MergedAt != nil {
		t := time.Unix(0, *r.MergedAt)
		meta.Merged = &t
	}
	return meta
}

func mapPRDataViews(raw []prDataView) []model.PrMetadata {
	out := make([]model.PrMetadata, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toPrMetadata())
	}
	return out
}
