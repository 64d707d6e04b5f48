package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/taskgate/modules/tasks/domain/orgunit"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

// UnitScope answers unit membership questions. It only reports facts;
// callers decide which error a mismatch becomes.
type UnitScope struct {
	units orgunit.Repository
	users user.Repository
	tasks task.Repository
}

func NewUnitScope(units orgunit.Repository, users user.Repository, tasks task.Repository) *UnitScope {
	return &UnitScope{units: units, users: users, tasks: tasks}
}

// ResolveUnitID maps a unit name, case-insensitively, to its id.
func (s *UnitScope) ResolveUnitID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, serrors.NotFound("UNIT_NOT_FOUND", "organizational unit not found")
	}
	u, err := s.units.GetByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, serrors.NotFound("UNIT_NOT_FOUND", "organizational unit not found")
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// TaskBelongsToUnit fails NotFound for missing or soft-deleted tasks.
func (s *UnitScope) TaskBelongsToUnit(ctx context.Context, taskID, unitID int64) (bool, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, errTaskNotFound
	}
	if err != nil {
		return false, err
	}
	if !t.IsActive {
		return false, errTaskNotFound
	}
	return t.UnitID == unitID, nil
}

// AssigneeBelongsToUnit reports whether userID is an active member of unitID.
func (s *UnitScope) AssigneeBelongsToUnit(ctx context.Context, userID, unitID int64) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive && u.UnitID == unitID, nil
}

// RequesterUnit resolves the unit asserted by the caller's identity and
// checks it is the unit the stored user belongs to.
func (s *UnitScope) RequesterUnit(ctx context.Context, p *Principal) (int64, error) {
	unitID, err := s.ResolveUnitID(ctx, p.UnitName)
	if serrors.IsKind(err, serrors.KindNotFound) {
		return 0, serrors.InvalidState("REQUESTER_UNIT_UNRESOLVED", "requester has no resolvable organizational unit")
	}
	if err != nil {
		return 0, err
	}
	if unitID != p.UnitID {
		return 0, serrors.Forbidden("UNIT_MISMATCH", "identity unit does not match the user's unit")
	}
	return unitID, nil
}

func (s *UnitScope) requireAssignee(ctx context.Context, assignee *int64, unitID int64) error {
	if assignee == nil {
		return nil
	}
	ok, err := s.AssigneeBelongsToUnit(ctx, *assignee, unitID)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidAssignee
	}
	return nil
}

var (
	errTaskNotFound    = serrors.NotFound("TASK_NOT_FOUND", "task not found")
	errInvalidAssignee = serrors.InvalidInput("TASK_INVALID_ASSIGNEE", "assignee must be an active user of the same unit").
				WithMeta("field", "assignedToUserId")
)
