package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/eventbus"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

// DecisionService applies or discards pending change requests. The row lock,
// the task mutation and the terminal stamp share one transaction.
type DecisionService struct {
	gate      *PermissionGate
	scope     *UnitScope
	tasks     task.Repository
	requests  changerequest.Repository
	tx        Transactor
	publisher eventbus.EventBus
	clock     Clock
}

func NewDecisionService(
	repos Repositories,
	gate *PermissionGate,
	scope *UnitScope,
	publisher eventbus.EventBus,
	clock Clock,
) *DecisionService {
	return &DecisionService{
		gate:      gate,
		scope:     scope,
		tasks:     repos.Tasks,
		requests:  repos.ChangeRequests,
		tx:        repos.Tx,
		publisher: publisher,
		clock:     clock,
	}
}

type DecideInput struct {
	RequestID int64
	Decision  string
	Comment   *string
}

var errRequestNotFound = serrors.NotFound("CHANGE_REQUEST_NOT_FOUND", "change request not found")

func (s *DecisionService) Decide(ctx context.Context, in DecideInput) (*changerequest.DecisionResult, error) {
	p, err := s.gate.Require(ctx, permissions.TaskApproveChanges)
	if err != nil {
		return nil, err
	}
	decision, err := changerequest.ParseDecision(in.Decision)
	if err != nil {
		return nil, err
	}
	if in.RequestID <= 0 {
		return nil, errRequestNotFound
	}

	ctx, span := tracer.Start(ctx, "tasks.change_requests.decide", trace.WithAttributes(
		attribute.Int64("change_request_id", in.RequestID),
		attribute.String("decision", string(decision)),
	))
	defer span.End()

	var changed []string
	cr, err := inTx(ctx, s.tx, func(txCtx context.Context) (*changerequest.ChangeRequest, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		cr, err := s.requests.GetForUpdate(txCtx, in.RequestID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		if cr.UnitID != unitID {
			return nil, serrors.Forbidden("CHANGE_REQUEST_OUT_OF_UNIT", "change request belongs to another organizational unit")
		}
		changed, err = s.resolve(txCtx, cr, p.UserID, decision, trimToNil(in.Comment))
		if err != nil {
			return nil, err
		}
		return cr, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, mapPgError(err)
	}

	if s.publisher != nil {
		s.publisher.Publish(&changerequest.DecidedEvent{
			Request:       *cr,
			Decision:      decision,
			ReviewerID:    p.UserID,
			ChangedFields: changed,
		})
	}
	return &changerequest.DecisionResult{RequestID: cr.ID, Status: cr.Status, TaskID: cr.TaskID}, nil
}

// resolve transitions cr and, when approved, applies it. It must run inside
// the transaction that holds cr's row lock. For approved updates it returns
// the task fields whose value changed.
func (s *DecisionService) resolve(
	ctx context.Context,
	cr *changerequest.ChangeRequest,
	reviewerID int64,
	decision changerequest.Decision,
	comment *string,
) ([]string, error) {
	next, err := changerequest.Decide(cr.Status, decision)
	if err != nil {
		if serrors.IsKind(err, serrors.KindConflict) {
			recordWriteConflict("decided")
		}
		return nil, err
	}

	now := s.clock.now()
	var changed []string
	if next == changerequest.StatusApproved {
		if changed, err = s.apply(ctx, cr, reviewerID, now); err != nil {
			return nil, err
		}
	}

	cr.Stamp(next, reviewerID, comment, now)
	stamped, err := s.requests.MarkDecided(ctx, cr)
	if err != nil {
		return nil, err
	}
	if !stamped {
		recordWriteConflict("decided")
		return nil, changerequest.ErrAlreadyDecided
	}

	recordDecided(string(cr.ChangeType), string(decision))
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"change_request_id": cr.ID,
		"change_type":       cr.ChangeType,
		"decision":          decision,
		"unit_id":           cr.UnitID,
		"reviewer_id":       reviewerID,
		"changed_fields":    changed,
	}).Info("change request decided")
	return changed, nil
}

func (s *DecisionService) apply(ctx context.Context, cr *changerequest.ChangeRequest, reviewerID int64, now time.Time) ([]string, error) {
	if cr.ChangeType == changerequest.ChangeTypeCreate {
		var f task.Fields
		if err := json.Unmarshal(cr.Payload, &f); err != nil {
			return nil, fmt.Errorf("change request %d: decode create payload: %w", cr.ID, err)
		}
		f = f.Normalize()
		if err := s.checkFields(ctx, f, cr.UnitID, nil); err != nil {
			return nil, err
		}
		t, err := task.New(f, cr.UnitID, cr.RequestedByUserID, reviewerID, now)
		if err != nil {
			return nil, err
		}
		created, err := s.tasks.Create(ctx, t)
		if err != nil {
			return nil, err
		}
		id := created.ID
		cr.TaskID = &id
		return nil, nil
	}

	t, err := s.lockTask(ctx, cr)
	if err != nil {
		return nil, err
	}

	var changed []string
	switch cr.ChangeType {
	case changerequest.ChangeTypeUpdate:
		if changed, err = s.merge(ctx, t, cr, now); err != nil {
			return nil, err
		}
	case changerequest.ChangeTypeComplete:
		t.Complete(now)
	case changerequest.ChangeTypeDelete:
		t.Deactivate(now)
	default:
		return nil, fmt.Errorf("change request %d: unknown change type %q", cr.ID, cr.ChangeType)
	}
	return changed, s.tasks.Update(ctx, t)
}

func (s *DecisionService) lockTask(ctx context.Context, cr *changerequest.ChangeRequest) (*task.Task, error) {
	if cr.TaskID == nil {
		return nil, fmt.Errorf("change request %d: %s without task", cr.ID, cr.ChangeType)
	}
	t, err := s.tasks.GetForUpdate(ctx, *cr.TaskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, errTaskNotFound
	}
	if t.UnitID != cr.UnitID {
		return nil, serrors.Forbidden("TASK_OUT_OF_UNIT", "task belongs to another organizational unit")
	}
	return t, nil
}

// merge applies the stored merge patch onto the task's current attributes,
// so keys absent from the patch keep their value.
func (s *DecisionService) merge(ctx context.Context, t *task.Task, cr *changerequest.ChangeRequest, now time.Time) ([]string, error) {
	current, err := json.Marshal(t.Fields())
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(current, cr.Payload)
	if err != nil {
		return nil, fmt.Errorf("change request %d: merge payload: %w", cr.ID, err)
	}
	var f task.Fields
	if err := json.Unmarshal(merged, &f); err != nil {
		return nil, fmt.Errorf("change request %d: decode merged fields: %w", cr.ID, err)
	}
	f = f.Normalize()
	if err := s.checkFields(ctx, f, cr.UnitID, t.AssignedToUserID); err != nil {
		return nil, err
	}
	if err := t.ApplyFields(f, now); err != nil {
		return nil, err
	}
	return changedFields(current, t.Fields())
}

// changedFields lists the top-level keys that differ between before and after.
func changedFields(before []byte, after task.Fields) ([]string, error) {
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	patch, err := jsondiff.CompareJSON(before, afterJSON)
	if err != nil {
		return nil, fmt.Errorf("diff task fields: %w", err)
	}
	changed := make([]string, 0, len(patch))
	for _, op := range patch {
		changed = append(changed, strings.TrimPrefix(string(op.Path), "/"))
	}
	return changed, nil
}

// checkFields validates attributes about to be written. The assignee is
// re-checked unless it is unchanged from previous.
func (s *DecisionService) checkFields(ctx context.Context, f task.Fields, unitID int64, previous *int64) error {
	if err := validateStruct(f); err != nil {
		return err
	}
	if f.AssignedToUserID == nil {
		return nil
	}
	if previous != nil && *previous == *f.AssignedToUserID {
		return nil
	}
	return s.scope.requireAssignee(ctx, f.AssignedToUserID, unitID)
}
