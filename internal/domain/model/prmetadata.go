package model

import "time"

// PrMetadata is the bot's derived view of a platform pull request. It is a
// value object reconstructed on every fetch; the bot never persists it —
// the ledger is the system of record for anything that must survive a
// restart.
type PrMetadata struct {
	RepoInfo RepoInfo
	Author   User
	Created  time.Time
	Merged   *time.Time // nil when not merged.
	Updated  time.Time
	Body     string
	Closed   bool
}

// IsMerged reports whether the PR has a merge timestamp.
func (p PrMetadata) IsMerged() bool {
	return p.Merged != nil
}

// daySinceInclude is the grace window during which Include is still accepted
// on a closed-but-unmerged or recently-merged PR.
const daySinceInclude = 24 * time.Hour

// WithinIncludeWindow reports whether `now` falls inside the 24h grace
// period after the PR was merged or closed. A PR that is neither merged nor
// closed is always within the window.
func (p PrMetadata) WithinIncludeWindow(now time.Time) bool {
	if p.Merged != nil {
		return now.Sub(*p.Merged) < daySinceInclude
	}
	if p.Closed {
		return now.Sub(p.Updated) < daySinceInclude
	}
	return true
}
