package models

type SubmissionStatus string

const (
	StatusPending       SubmissionStatus = "pending"
	StatusNeedsRevision SubmissionStatus = "needs_revision"
	StatusApproved      SubmissionStatus = "approved"
	StatusRejected      SubmissionStatus = "rejected"
)

// IsTerminal reports whether no review action may leave the status.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusNeedsRevision, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type ReviewAction string

const (
	ActionApprove         ReviewAction = "approved"
	ActionReject          ReviewAction = "rejected"
	ActionRequestRevision ReviewAction = "revision_requested"
)

func (a ReviewAction) Verb() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionRequestRevision:
		return "request revision on"
	}
	return string(a)
}

// reviewTransitions is the complete state table of the review workflow.
// A missing entry is an illegal transition.
var reviewTransitions = map[SubmissionStatus]map[ReviewAction]SubmissionStatus{
	StatusPending: {
		ActionApprove:         StatusApproved,
		ActionReject:          StatusRejected,
		ActionRequestRevision: StatusNeedsRevision,
	},
	StatusNeedsRevision: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusApproved: {},
	StatusRejected: {},
}

// NextStatus resolves the status reached by applying action to current.
func NextStatus(current SubmissionStatus, action ReviewAction) (SubmissionStatus, error) {
	next, ok := reviewTransitions[current][action]
	if !ok {
		return "", NewInvalidStateTransition(current, action)
	}
	return next, nil
}

// SourceStatuses lists every status from which action is allowed.
func SourceStatuses(action ReviewAction) []SubmissionStatus {
	var out []SubmissionStatus
	for _, from := range []SubmissionStatus{StatusPending, StatusNeedsRevision, StatusApproved, StatusRejected} {
		if _, ok := reviewTransitions[from][action]; ok {
			out = append(out, from)
		}
	}
	return out
}
