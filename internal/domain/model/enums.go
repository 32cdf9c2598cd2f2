package model

// Association is the platform-reported relationship between a user and the
// repository they commented in.
type Association string

// Association values, as reported by the platform's author_association field.
const (
	AssociationOwner                Association = "OWNER"
	AssociationMember               Association = "MEMBER"
	AssociationCollaborator         Association = "COLLABORATOR"
	AssociationContributor          Association = "CONTRIBUTOR"
	AssociationFirstTimeContributor Association = "FIRST_TIME_CONTRIBUTOR"
	AssociationFirstTimer           Association = "FIRST_TIMER"
	AssociationNone                 Association = "NONE"
)

// IsMaintainer reports whether the association grants maintainer rights
// (gating for Score/Pause/Unpause/Exclude handlers).
func (a Association) IsMaintainer() bool {
	switch a {
	case AssociationOwner, AssociationMember, AssociationCollaborator:
		return true
	default:
		return false
	}
}

// ReviewState mirrors the platform's pull request review state.
type ReviewState string

// ReviewState values.
const (
	ReviewStateApproved         ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented        ReviewState = "commented"
	ReviewStatePending          ReviewState = "pending"
	ReviewStateDismissed        ReviewState = "dismissed"
)

// NotificationReason is the platform's reason field for a notification.
type NotificationReason string

// Notification reasons the event builder cares about; everything else is
// dropped and the notification is marked read.
const (
	NotificationReasonMention     NotificationReason = "mention"
	NotificationReasonStateChange NotificationReason = "state_change"
)

// SubjectType is the notification subject's type field.
type SubjectType string

// SubjectType values.
const (
	SubjectTypePullRequest SubjectType = "PullRequest"
	SubjectTypeIssue       SubjectType = "Issue"
)

// AllowedScores is the closed set of scores a Score command can normalize to.
// Order matters: it is iterated to find the nearest value, smallest wins ties.
var AllowedScores = []uint64{0, 1, 2, 3, 5, 8, 13}
