package model

import "time"

// EventSource distinguishes the three shapes an Event's payload can take.
type EventSource int

// EventSource values.
const (
	EventSourcePRCommand EventSource = iota
	EventSourceIssueCommand
	EventSourceAction
)

// Event is the unit of work the dispatcher executes. Exactly one of the
// PRCommand*, IssueCommand*, or Action fields is meaningful, selected by
// Source. TriggerComment is the user comment whose mention produced the
// command — the target of any thumbs-up reaction — and is nil for commands
// raised from a PR body and for actions. Comment is the bot's own first
// reply on the PR as seen when the event was built (nil if none); the
// dispatcher's status refresh looks the status comment up again through
// GetBotComment rather than reading this field.
type Event struct {
	Source EventSource

	// EventSourcePRCommand fields.
	PRCommand   PRCommand
	PRCommandPR PrMetadata
	PRSender    User

	// EventSourceIssueCommand fields.
	IssueCommand     IssueCommand
	IssueCommandRepo RepoInfo
	IssueSender      User

	// EventSourceAction fields.
	Action   Action
	ActionPR PrMetadata

	Notification   Notification
	TriggerComment *CommentRepr
	Comment        *CommentRepr
	EventTime      time.Time
}

// RepoInfo returns the RepoInfo this event pertains to, regardless of Source.
func (e Event) RepoInfo() RepoInfo {
	switch e.Source {
	case EventSourcePRCommand:
		return e.PRCommandPR.RepoInfo
	case EventSourceIssueCommand:
		return e.IssueCommandRepo
	case EventSourceAction:
		return e.ActionPR.RepoInfo
	default:
		return RepoInfo{}
	}
}
