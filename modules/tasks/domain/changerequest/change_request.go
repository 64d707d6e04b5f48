package changerequest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

type ChangeType string

const (
	ChangeTypeCreate   ChangeType = "CREATE"
	ChangeTypeUpdate   ChangeType = "UPDATE"
	ChangeTypeComplete ChangeType = "COMPLETE"
	ChangeTypeDelete   ChangeType = "DELETE"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", serrors.InvalidInput("CHANGE_REQUEST_INVALID_STATUS", "status must be one of PENDING, APPROVED, REJECTED").
			WithMeta("field", "status")
	}
}

// ChangeRequest is a proposed mutation of a task. It is kept forever as an audit record.
type ChangeRequest struct {
	ID                int64
	TaskID            *int64
	UnitID            int64
	RequestedByUserID int64
	ChangeType        ChangeType
	Status            Status
	Reason            *string
	Payload           json.RawMessage
	RequestedAt       time.Time
	ReviewedAt        *time.Time
	ReviewedByUserID  *int64
	ReviewComment     *string
}

// Stamp records a review outcome on the request.
func (cr *ChangeRequest) Stamp(status Status, reviewerID int64, comment *string, at time.Time) {
	cr.Status = status
	reviewed := at
	cr.ReviewedAt = &reviewed
	reviewer := reviewerID
	cr.ReviewedByUserID = &reviewer
	cr.ReviewComment = comment
}

// Receipt is what a submitter gets back.
type Receipt struct {
	RequestID   int64
	ChangeType  ChangeType
	Status      Status
	TaskID      *int64
	RequestedAt time.Time
}

func (cr *ChangeRequest) Receipt() *Receipt {
	return &Receipt{
		RequestID:   cr.ID,
		ChangeType:  cr.ChangeType,
		Status:      cr.Status,
		TaskID:      cr.TaskID,
		RequestedAt: cr.RequestedAt,
	}
}

// DecisionResult is what a reviewer gets back.
type DecisionResult struct {
	RequestID int64
	Status    Status
	TaskID    *int64
}

// View is a request enriched for listings. TaskTitle falls back to the
// proposed title for CREATE requests that have not materialized.
type View struct {
	ChangeRequest
	RequesterName string
	UnitCode      string
	UnitName      string
	TaskTitle     *string
}
