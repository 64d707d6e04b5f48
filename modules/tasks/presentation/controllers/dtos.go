package controllers

import (
	"time"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/pkg/types"
)

type createTaskRequest struct {
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Status           string  `json:"status"`
	Priority         string  `json:"priority"`
	DueDate          *string `json:"dueDate"`
	AssignedToUserID *int64  `json:"assignedToUserId"`
	Reason           *string `json:"reason"`
}

// updateTaskRequest tells absent keys apart from explicit nulls.
type updateTaskRequest struct {
	Title            types.Optional[string] `json:"title"`
	Description      types.Optional[string] `json:"description"`
	Status           types.Optional[string] `json:"status"`
	Priority         types.Optional[string] `json:"priority"`
	DueDate          types.Optional[string] `json:"dueDate"`
	AssignedToUserID types.Optional[int64]  `json:"assignedToUserId"`
	Reason           *string                `json:"reason"`
}

type transitionRequest struct {
	Reason *string `json:"reason"`
}

type decisionRequest struct {
	Decision string  `json:"decision"`
	Comment  *string `json:"comment"`
}

type receiptResponse struct {
	RequestID   int64     `json:"requestId"`
	ChangeType  string    `json:"changeType"`
	Status      string    `json:"status"`
	TaskID      *int64    `json:"taskId"`
	RequestedAt time.Time `json:"requestedAt"`
}

func toReceiptResponse(r *changerequest.Receipt) receiptResponse {
	return receiptResponse{
		RequestID:   r.RequestID,
		ChangeType:  string(r.ChangeType),
		Status:      string(r.Status),
		TaskID:      r.TaskID,
		RequestedAt: r.RequestedAt,
	}
}

type decisionResponse struct {
	RequestID int64  `json:"requestId"`
	Status    string `json:"status"`
	TaskID    *int64 `json:"taskId"`
}

type taskResponse struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	DueDate          *string    `json:"dueDate"`
	CompletedAt      *time.Time `json:"completedAt"`
	UnitID           int64      `json:"unitId"`
	UnitCode         string     `json:"unitCode"`
	UnitName         string     `json:"unitName"`
	CreatedByUserID  int64      `json:"createdByUserId"`
	CreatedByName    string     `json:"createdByName"`
	ApprovedByUserID int64      `json:"approvedByUserId"`
	ApprovedByName   string     `json:"approvedByName"`
	AssignedToUserID *int64     `json:"assignedToUserId"`
	AssignedToName   *string    `json:"assignedToName"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func toTaskResponses(views []*task.View) []taskResponse {
	out := make([]taskResponse, 0, len(views))
	for _, v := range views {
		var due *string
		if v.DueDate != nil {
			d := v.DueDate.Format(task.DateLayout)
			due = &d
		}
		out = append(out, taskResponse{
			ID:               v.ID,
			Title:            v.Title,
			Description:      v.Description,
			Status:           string(v.Status),
			Priority:         string(v.Priority),
			DueDate:          due,
			CompletedAt:      v.CompletedAt,
			UnitID:           v.UnitID,
			UnitCode:         v.UnitCode,
			UnitName:         v.UnitName,
			CreatedByUserID:  v.CreatedByUserID,
			CreatedByName:    v.CreatedByName,
			ApprovedByUserID: v.ApprovedByUserID,
			ApprovedByName:   v.ApprovedByName,
			AssignedToUserID: v.AssignedToUserID,
			AssignedToName:   v.AssignedToName,
			CreatedAt:        v.CreatedAt,
			UpdatedAt:        v.UpdatedAt,
		})
	}
	return out
}

type changeRequestResponse struct {
	ID                int64          `json:"id"`
	TaskID            *int64         `json:"taskId"`
	TaskTitle         *string        `json:"taskTitle"`
	UnitID            int64          `json:"unitId"`
	UnitCode          string         `json:"unitCode"`
	UnitName          string         `json:"unitName"`
	RequestedByUserID int64          `json:"requestedByUserId"`
	RequesterName     string         `json:"requesterName"`
	ChangeType        string         `json:"changeType"`
	Status            string         `json:"status"`
	Reason            *string        `json:"reason"`
	Payload           map[string]any `json:"payload"`
	RequestedAt       time.Time      `json:"requestedAt"`
	ReviewedAt        *time.Time     `json:"reviewedAt"`
	ReviewedByUserID  *int64         `json:"reviewedByUserId"`
	ReviewComment     *string        `json:"reviewComment"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponses(users []*user.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)})
	}
	return out
}

type permissionsResponse struct {
	UserID      int64    `json:"userId"`
	Permissions []string `json:"permissions"`
}
