package model

import "time"

// CommentRepr normalizes a platform issue comment or PR review into a single
// shape the command parser and event builder operate on. Reviews map to the
// same shape with CommentID left nil — there is no comment to react to or
// reply-thread into.
type CommentRepr struct {
	ID        int64
	User      User
	Timestamp time.Time
	Text      string
	CommentID *int64 // nil for reviews.
}
