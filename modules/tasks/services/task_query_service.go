package services

import (
	"context"
	"strings"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
)

// TaskQueryService is the read side. Every listing is confined to the caller's unit.
type TaskQueryService struct {
	gate     *PermissionGate
	scope    *UnitScope
	users    user.Repository
	tasks    task.Repository
	requests changerequest.Repository
	tx       Transactor
}

func NewTaskQueryService(repos Repositories, gate *PermissionGate, scope *UnitScope) *TaskQueryService {
	return &TaskQueryService{
		gate:     gate,
		scope:    scope,
		users:    repos.Users,
		tasks:    repos.Tasks,
		requests: repos.ChangeRequests,
		tx:       repos.Tx,
	}
}

// ListVisibleTasks returns the unit's active tasks. Supervisors see all of
// them; standard members see only tasks assigned to them.
func (s *TaskQueryService) ListVisibleTasks(ctx context.Context) ([]*task.View, error) {
	p, err := s.gate.Require(ctx, permissions.TaskViewAll)
	if err != nil {
		return nil, err
	}
	return inTx(ctx, s.tx, func(txCtx context.Context) ([]*task.View, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		var assignee *int64
		if !p.Role.IsPrivileged() {
			assignee = &p.UserID
		}
		views, err := s.tasks.ListVisible(txCtx, unitID, assignee)
		return views, mapPgError(err)
	})
}

// ListOwnRequests returns the caller's requests, newest first. An empty
// status lists every status.
func (s *TaskQueryService) ListOwnRequests(ctx context.Context, status string) ([]*changerequest.View, error) {
	p, err := s.gate.Require(ctx, permissions.TaskViewAll)
	if err != nil {
		return nil, err
	}
	var filter *changerequest.Status
	if strings.TrimSpace(status) != "" {
		st, err := changerequest.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}
	return inTx(ctx, s.tx, func(txCtx context.Context) ([]*changerequest.View, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		views, err := s.requests.ListByRequester(txCtx, p.UserID, unitID, filter)
		return views, mapPgError(err)
	})
}

// ListPendingApprovals returns the unit's requests awaiting a supervisor, oldest first.
func (s *TaskQueryService) ListPendingApprovals(ctx context.Context) ([]*changerequest.View, error) {
	p, err := s.gate.Require(ctx, permissions.TaskApproveChanges)
	if err != nil {
		return nil, err
	}
	return inTx(ctx, s.tx, func(txCtx context.Context) ([]*changerequest.View, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		views, err := s.requests.ListPendingFromStandard(txCtx, unitID)
		return views, mapPgError(err)
	})
}

// ListUnitUsers returns the active members of the caller's unit, for assignment pickers.
func (s *TaskQueryService) ListUnitUsers(ctx context.Context) ([]*user.User, error) {
	p, err := s.gate.Require(ctx, permissions.TaskViewAll)
	if err != nil {
		return nil, err
	}
	return inTx(ctx, s.tx, func(txCtx context.Context) ([]*user.User, error) {
		unitID, err := s.scope.RequesterUnit(txCtx, p)
		if err != nil {
			return nil, err
		}
		users, err := s.users.ListActiveByUnit(txCtx, unitID)
		return users, mapPgError(err)
	})
}

// PermissionsFor exposes the gate's fresh permission lookup for the caller.
func (s *TaskQueryService) PermissionsFor(ctx context.Context, userID int64) ([]string, error) {
	return s.gate.PermissionsFor(ctx, userID)
}
