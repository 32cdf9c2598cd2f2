package model

// Vote is a single maintainer's recorded score for a pull request.
type Vote struct {
	User  string
	Score uint32
}

// PRInfo is the read-mostly ledger snapshot gating decisions are made
// against. It is fetched fresh before every event and may be mutated
// in-memory by a handler within a single tick so that later commands for
// the same PR in that tick observe earlier writes.
type PRInfo struct {
	Exist       bool
	Merged      bool
	Executed    bool
	Excluded    bool
	Paused      bool
	PausedRepo  bool
	BlockedRepo bool
	AllowedRepo bool
	Votes       []Vote
}

// AverageScore returns floor(sum(votes)/len(votes)), or 0 when there are no
// votes.
func (p PRInfo) AverageScore() uint32 {
	if len(p.Votes) == 0 {
		return 0
	}
	var sum uint32
	for _, v := range p.Votes {
		sum += v.Score
	}
	return sum / uint32(len(p.Votes))
}

// VoteFor returns the index of user's existing vote, or -1 if they have not
// voted yet.
func (p PRInfo) VoteFor(user string) int {
	for i, v := range p.Votes {
		if v.User == user {
			return i
		}
	}
	return -1
}

// RecordVote replaces user's prior vote if present, else appends one.
func (p *PRInfo) RecordVote(user string, score uint32) {
	if i := p.VoteFor(user); i >= 0 {
		p.Votes[i].Score = score
		return
	}
	p.Votes = append(p.Votes, Vote{User: user, Score: score})
}

// ResetOnStale clears the tracking state the Stale action resets, leaving
// repo-level flags (AllowedRepo, PausedRepo, BlockedRepo) untouched.
func (p *PRInfo) ResetOnStale() {
	p.Exist = false
	p.Votes = nil
	p.Merged = false
	p.Executed = false
}
