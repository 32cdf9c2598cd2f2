package driven

// MessageCategory is the closed set of reply templates the bot can render.
type MessageCategory string

// MessageCategory values.
const (
	MsgIncludeBasic                           MessageCategory = "IncludeBasic"
	MsgCorrectableScoring                     MessageCategory = "CorrectableScoring"
	MsgCorrectZeroScoring                     MessageCategory = "CorrectZeroScoring"
	MsgCorrectNonzeroScoring                  MessageCategory = "CorrectNonzeroScoring"
	MsgExclude                                MessageCategory = "Exclude"
	MsgPause                                  MessageCategory = "Pause"
	MsgUnpause                                MessageCategory = "Unpause"
	MsgUnpauseIssue                           MessageCategory = "UnpauseIssue"
	MsgMergeWithScore                         MessageCategory = "MergeWithScore"
	MsgMergeWithoutScoreByOtherParty          MessageCategory = "MergeWithoutScoreByOtherParty"
	MsgMergeWithoutScoreByAuthorWithoutReview MessageCategory = "MergeWithoutScoreByAuthorWithoutReviewers"
	MsgFinal                                  MessageCategory = "Final"
	MsgStale                                  MessageCategory = "Stale"
	MsgErrorUnknownCommand                    MessageCategory = "ErrorUnknownCommand"
	MsgErrorRightsViolation                   MessageCategory = "ErrorRightsViolation"
	MsgErrorLateInclude                       MessageCategory = "ErrorLateInclude"
	MsgErrorLateScoring                       MessageCategory = "ErrorLateScoring"
	MsgErrorSelfScore                         MessageCategory = "ErrorSelfScore"
	MsgErrorOrgNotInAllowedList                MessageCategory = "ErrorOrgNotInAllowedList"
	MsgErrorPaused                            MessageCategory = "ErrorPaused"
	MsgErrorPausePaused                       MessageCategory = "ErrorPausePaused"
	MsgErrorUnpauseUnpaused                   MessageCategory = "ErrorUnpauseUnpaused"
	MsgErrorRepoIsBanned                      MessageCategory = "ErrorRepoIsBanned"
)

// MessageRenderer is the pure, I/O-free template renderer.
type MessageRenderer interface {
	Render(category MessageCategory, vars map[string]string) string
}
