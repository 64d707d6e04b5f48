package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/eventbus"
	"github.com/iota-uz/taskgate/pkg/serrors"
	"github.com/iota-uz/taskgate/pkg/types"
)

// AutoApprovalComment is stamped on requests resolved at submission by a supervisor.
const AutoApprovalComment = "auto-approved on submission by supervisor"

var tracer = otel.Tracer("taskgate/modules/tasks/services")

// ChangeRequestService mediates every task mutation. Supervisor submissions
// are applied in the same transaction that records them; everyone else's wait
// for review.
type ChangeRequestService struct {
	gate      *PermissionGate
	scope     *UnitScope
	requests  changerequest.Repository
	decisions *DecisionService
	tx        Transactor
	publisher eventbus.EventBus
	clock     Clock
}

func NewChangeRequestService(
	repos Repositories,
	gate *PermissionGate,
	scope *UnitScope,
	decisions *DecisionService,
	publisher eventbus.EventBus,
	clock Clock,
) *ChangeRequestService {
	return &ChangeRequestService{
		gate:      gate,
		scope:     scope,
		requests:  repos.ChangeRequests,
		decisions: decisions,
		tx:        repos.Tx,
		publisher: publisher,
		clock:     clock,
	}
}

type CreateInput struct {
	Title            string
	Description      *string
	Status           string
	Priority         string
	DueDate          *string
	AssignedToUserID *int64
	Reason           *string
}

// UpdateInput carries only the attributes the caller sent; an Optional that
// is Set with a nil Value clears the attribute.
type UpdateInput struct {
	TaskID           int64
	Title            types.Optional[string]
	Description      types.Optional[string]
	Status           types.Optional[string]
	Priority         types.Optional[string]
	DueDate          types.Optional[string]
	AssignedToUserID types.Optional[int64]
	Reason           *string
}

type TransitionInput struct {
	TaskID int64
	Reason *string
}

type submission struct {
	permission string
	changeType changerequest.ChangeType
	taskID     *int64
	payload    json.RawMessage
	reason     *string
	assignee   *int64
}

func (s *ChangeRequestService) SubmitCreate(ctx context.Context, in CreateInput) (*changerequest.Receipt, error) {
	p, err := s.gate.Require(ctx, permissions.TaskCreate)
	if err != nil {
		return nil, err
	}
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, p, submission{
		changeType: changerequest.ChangeTypeCreate,
		payload:    payload,
		reason:     in.Reason,
		assignee:   fields.AssignedToUserID,
	})
}

func (s *ChangeRequestService) SubmitUpdate(ctx context.Context, in UpdateInput) (*changerequest.Receipt, error) {
	p, err := s.gate.Require(ctx, permissions.TaskEditUnit)
	if err != nil {
		return nil, err
	}
	if err := requireTaskID(in.TaskID); err != nil {
		return nil, err
	}
	patch, assignee, err := in.patch()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, p, submission{
		changeType: changerequest.ChangeTypeUpdate,
		taskID:     &in.TaskID,
		payload:    payload,
		reason:     in.Reason,
		assignee:   assignee,
	})
}

func (s *ChangeRequestService) SubmitComplete(ctx context.Context, in TransitionInput) (*changerequest.Receipt, error) {
	return s.submitTransition(ctx, permissions.TaskCompleteUnit, changerequest.ChangeTypeComplete, in)
}

func (s *ChangeRequestService) SubmitDelete(ctx context.Context, in TransitionInput) (*changerequest.Receipt, error) {
	return s.submitTransition(ctx, permissions.TaskDeleteUnit, changerequest.ChangeTypeDelete, in)
}

func (s *ChangeRequestService) submitTransition(
	ctx context.Context,
	permission string,
	changeType changerequest.ChangeType,
	in TransitionInput,
) (*changerequest.Receipt, error) {
	p, err := s.gate.Require(ctx, permission)
	if err != nil {
		return nil, err
	}
	if err := requireTaskID(in.TaskID); err != nil {
		return nil, err
	}
	return s.submit(ctx, p, submission{
		changeType: changeType,
		taskID:     &in.TaskID,
		payload:    json.RawMessage(`{}`),
		reason:     in.Reason,
	})
}

func (s *ChangeRequestService) submit(ctx context.Context, p *Principal, sub submission) (*changerequest.Receipt, error) {
	ctx, span := tracer.Start(ctx, "tasks.change_requests.submit", trace.WithAttributes(
		attribute.String("change_type", string(sub.changeType)),
		attribute.Int64("user_id", p.UserID),
	))
	defer span.End()

	autoApprove := p.Role.IsPrivileged()
	var changed []string
	cr, err := inTx(ctx, s.tx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		if sub.taskID != nil {
			inUnit, err := s.scope.TaskBelongsToUnit(txCtx, *sub.taskID, unitID)
			if err != nil {
				return nil, err
			}
			if !inUnit {
				return nil, serrors.Forbidden("TASK_OUT_OF_UNIT", "task belongs to another organizational unit")
			}
		}
		if err := s.scope.requireAssignee(txCtx, sub.assignee, unitID); err != nil {
			return nil, err
		}

		created, err := s.requests.Create(txCtx, &changerequest.ChangeRequest{
			TaskID:            sub.taskID,
			UnitID:            unitID,
			RequestedByUserID: p.UserID,
			ChangeType:        sub.changeType,
			Status:            changerequest.StatusPending,
			Reason:            trimToNil(sub.reason),
			Payload:           sub.payload,
			RequestedAt:       s.clock.now(),
		})
		if err != nil {
			return nil, err
		}

		if autoApprove {
			comment := AutoApprovalComment
			if changed, err = s.decisions.resolve(txCtx, created, p.UserID, changerequest.DecisionApproved, &comment); err != nil {
				return nil, err
			}
		}
		return created, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, mapPgError(err)
	}

	recordSubmitted(string(cr.ChangeType), autoApprove)
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"change_request_id": cr.ID,
		"change_type":       cr.ChangeType,
		"status":            cr.Status,
		"unit_id":           cr.UnitID,
	}).Info("change request submitted")

	if s.publisher != nil {
		s.publisher.Publish(&changerequest.SubmittedEvent{Request: *cr, AutoApproved: autoApprove})
		if autoApprove {
			s.publisher.Publish(&changerequest.DecidedEvent{
				Request:       *cr,
				Decision:      changerequest.DecisionApproved,
				ReviewerID:    p.UserID,
				ChangedFields: changed,
			})
		}
	}
	return cr.Receipt(), nil
}

func (in CreateInput) fields() (task.Fields, error) {
	f := task.Fields{
		Title:            in.Title,
		Description:      in.Description,
		DueDate:          in.DueDate,
		AssignedToUserID: in.AssignedToUserID,
		Status:           task.StatusPending,
		Priority:         task.PriorityMedium,
	}.Normalize()
	if f.Title == "" {
		return task.Fields{}, serrors.NewFieldRequiredError("title")
	}
	if strings.TrimSpace(in.Priority) != "" {
		priority, err := task.ParsePriority(in.Priority)
		if err != nil {
			return task.Fields{}, err
		}
		f.Priority = priority
	}
	if strings.TrimSpace(in.Status) != "" {
		status, err := task.ParseStatus(in.Status)
		if err != nil {
			return task.Fields{}, err
		}
		f.Status = status
	}
	if err := validateStruct(f); err != nil {
		return task.Fields{}, err
	}
	return f, nil
}

// patch builds the merge patch of an update. A JSON null in the patch clears
// the attribute; keys that were not sent are absent.
func (in UpdateInput) patch() (map[string]any, *int64, error) {
	patch := map[string]any{}

	if in.Title.Set {
		if in.Title.Value == nil || strings.TrimSpace(*in.Title.Value) == "" {
			return nil, nil, serrors.NewFieldRequiredError("title")
		}
		title := strings.TrimSpace(*in.Title.Value)
		if utf8.RuneCountInString(title) > 255 {
			return nil, nil, serrors.InvalidInput("TASK_INVALID_FIELD", "title is invalid (max)").WithMeta("field", "title")
		}
		patch["title"] = title
	}
	if in.Description.Set {
		patch["description"] = optionalText(in.Description.Value)
	}
	if in.Status.Set {
		if in.Status.Value == nil {
			return nil, nil, serrors.NewFieldRequiredError("status")
		}
		status, err := task.ParseStatus(*in.Status.Value)
		if err != nil {
			return nil, nil, err
		}
		patch["status"] = status
	}
	if in.Priority.Set {
		if in.Priority.Value == nil {
			return nil, nil, serrors.NewFieldRequiredError("priority")
		}
		priority, err := task.ParsePriority(*in.Priority.Value)
		if err != nil {
			return nil, nil, err
		}
		patch["priority"] = priority
	}
	if in.DueDate.Set {
		due := trimToNil(in.DueDate.Value)
		if due != nil {
			if _, err := time.Parse(task.DateLayout, *due); err != nil {
				return nil, nil, serrors.InvalidInput("TASK_INVALID_DUE_DATE", "dueDate must be YYYY-MM-DD").WithMeta("field", "dueDate")
			}
			patch["dueDate"] = *due
		} else {
			patch["dueDate"] = nil
		}
	}

	var assignee *int64
	if in.AssignedToUserID.Set {
		if in.AssignedToUserID.Value == nil {
			patch["assignedToUserId"] = nil
		} else {
			if *in.AssignedToUserID.Value <= 0 {
				return nil, nil, errInvalidAssignee
			}
			assignee = in.AssignedToUserID.Value
			patch["assignedToUserId"] = *assignee
		}
	}

	if len(patch) == 0 {
		return nil, nil, serrors.InvalidInput("TASK_UPDATE_EMPTY", "at least one field must be provided")
	}
	return patch, assignee, nil
}

func optionalText(s *string) any {
	if v := trimToNil(s); v != nil {
		return *v
	}
	return nil
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

func requireTaskID(id int64) error {
	if id <= 0 {
		return serrors.InvalidInput("TASK_INVALID_ID", "task id must be a positive integer").WithMeta("field", "taskId")
	}
	return nil
}
