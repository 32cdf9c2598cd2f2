package model

import "fmt"

// RepoInfo identifies a pull request or issue uniquely and immutably across
// the lifetime of the system.
type RepoInfo struct {
	Owner  string
	Repo   string
	Number int
}

// FullID renders the canonical "owner/repo/number" identifier used as the
// ledger's primary key for a tracked pull request.
func (r RepoInfo) FullID() string {
	return fmt.Sprintf("%s/%s/%d", r.Owner, r.Repo, r.Number)
}

// String satisfies fmt.Stringer for logging.
func (r RepoInfo) String() string {
	return r.FullID()
}
