package changerequest

import (
	"strings"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

var ErrAlreadyDecided = serrors.Conflict("CHANGE_REQUEST_ALREADY_DECIDED", "change request is no longer pending")

func ParseDecision(raw string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(raw))); d {
	case DecisionApproved, DecisionRejected:
		return d, nil
	default:
		return "", serrors.InvalidInput("CHANGE_REQUEST_INVALID_DECISION", "decision must be APPROVED or REJECTED").
			WithMeta("field", "decision")
	}
}

// Decide is the whole lifecycle: only PENDING moves, and only to the decided status.
func Decide(current Status, d Decision) (Status, error) {
	if current != StatusPending {
		return current, ErrAlreadyDecided
	}
	switch d {
	case DecisionApproved:
		return StatusApproved, nil
	case DecisionRejected:
		return StatusRejected, nil
	default:
		return current, serrors.InvalidInput("CHANGE_REQUEST_INVALID_DECISION", "decision must be APPROVED or REJECTED")
	}
}
