package task

import (
	"strings"
	"time"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// DateLayout is the wire format of DueDate.
const DateLayout = "2006-01-02"

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return s, nil
	default:
		return "", serrors.InvalidInput("TASK_INVALID_STATUS", "status must be one of PENDING, IN_PROGRESS, COMPLETED").
			WithMeta("field", "status")
	}
}

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", serrors.InvalidInput("TASK_INVALID_PRIORITY", "priority must be one of LOW, MEDIUM, HIGH").
			WithMeta("field", "priority")
	}
}

// Task is a unit-owned work item. It is never physically deleted.
type Task struct {
	ID               int64
	Title            string
	Description      *string
	Status           Status
	Priority         Priority
	DueDate          *time.Time
	CompletedAt      *time.Time
	UnitID           int64
	CreatedByUserID  int64
	ApprovedByUserID int64
	AssignedToUserID *int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// New materializes a task from a validated attribute set.
func New(f Fields, unitID, createdBy, approvedBy int64, now time.Time) (*Task, error) {
	t := &Task{
		UnitID:           unitID,
		CreatedByUserID:  createdBy,
		ApprovedByUserID: approvedBy,
		IsActive:         true,
		CreatedAt:        now,
	}
	if err := t.ApplyFields(f, now); err != nil {
		return nil, err
	}
	return t, nil
}

// Fields returns the mutable attributes of t.
func (t *Task) Fields() Fields {
	f := Fields{
		Title:            t.Title,
		Description:      t.Description,
		Status:           t.Status,
		Priority:         t.Priority,
		AssignedToUserID: t.AssignedToUserID,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(DateLayout)
		f.DueDate = &d
	}
	return f
}

// ApplyFields overwrites every mutable attribute. Entering COMPLETED stamps
// CompletedAt; leaving it clears the stamp.
func (t *Task) ApplyFields(f Fields, now time.Time) error {
	var due *time.Time
	if f.DueDate != nil {
		d, err := time.Parse(DateLayout, *f.DueDate)
		if err != nil {
			return serrors.InvalidInput("TASK_INVALID_DUE_DATE", "dueDate must be YYYY-MM-DD").WithMeta("field", "dueDate")
		}
		due = &d
	}

	wasCompleted := t.Status == StatusCompleted
	t.Title = f.Title
	t.Description = f.Description
	t.Status = f.Status
	t.Priority = f.Priority
	t.DueDate = due
	t.AssignedToUserID = f.AssignedToUserID

	switch {
	case t.Status == StatusCompleted && (!wasCompleted || t.CompletedAt == nil):
		stamp := now
		t.CompletedAt = &stamp
	case t.Status != StatusCompleted:
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return nil
}

// Complete marks the task done.
func (t *Task) Complete(now time.Time) {
	t.Status = StatusCompleted
	stamp := now
	t.CompletedAt = &stamp
	t.UpdatedAt = now
}

// Deactivate soft-deletes the task.
func (t *Task) Deactivate(now time.Time) {
	t.IsActive = false
	t.UpdatedAt = now
}

// View is a task enriched with display names for listings.
type View struct {
	Task
	UnitCode       string
	UnitName       string
	CreatedByName  string
	ApprovedByName string
	AssignedToName *string
}
