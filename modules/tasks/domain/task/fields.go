package task

import (
	"strings"
)

// Fields is the JSON document of a task's mutable attributes. CREATE payloads
// carry it in full; UPDATE payloads are RFC 7386 merge patches against it.
type Fields struct {
	Title            string   `json:"title" validate:"required,max=255"`
	Description      *string  `json:"description,omitempty"`
	Status           Status   `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority         Priority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	DueDate          *string  `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AssignedToUserID *int64   `json:"assignedToUserId,omitempty" validate:"omitempty,gt=0"`
}

// Normalize trims text and folds empty optional text to nil.
func (f Fields) Normalize() Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = trimToNil(f.Description)
	f.DueDate = trimToNil(f.DueDate)
	return f
}

func trimToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
