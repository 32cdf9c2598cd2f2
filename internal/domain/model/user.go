package model

// User identifies a platform account and its standing in the repository it
// acted in.
type User struct {
	Login       string
	Association Association
}

// IsMaintainer reports whether the user may perform maintainer-only actions
// (Pause, Unpause, Exclude, and scoring).
func (u User) IsMaintainer() bool {
	return u.Association.IsMaintainer()
}
