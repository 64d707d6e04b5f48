package permissions

import (
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/pkg/authz"
)

const (
	TaskCreate         = "TASK_CREATE"
	TaskEditUnit       = "TASK_EDIT_UNIT"
	TaskCompleteUnit   = "TASK_COMPLETE_UNIT"
	TaskDeleteUnit     = "TASK_DELETE_UNIT"
	TaskApproveChanges = "TASK_APPROVE_CHANGES"
	TaskViewAll        = "TASK_VIEW_ALL"
)

// All lists every permission code in display order.
var All = []string{
	TaskCreate,
	TaskEditUnit,
	TaskCompleteUnit,
	TaskDeleteUnit,
	TaskApproveChanges,
	TaskViewAll,
}

// StandardPermissions are granted to every unit member.
var StandardPermissions = []string{
	TaskCreate,
	TaskEditUnit,
	TaskCompleteUnit,
	TaskDeleteUnit,
	TaskViewAll,
}

// Policies is the default role catalog: supervisors inherit every standard
// permission and additionally review change requests.
func Policies() ([]authz.Policy, []authz.Grouping) {
	policies := make([]authz.Policy, 0, len(StandardPermissions)+1)
	for _, code := range StandardPermissions {
		policies = append(policies, authz.Policy{Subject: string(user.RoleStandard), Permission: code})
	}
	policies = append(policies, authz.Policy{Subject: string(user.RoleSupervisor), Permission: TaskApproveChanges})

	groupings := []authz.Grouping{
		{Member: string(user.RoleSupervisor), Parent: string(user.RoleStandard)},
	}
	return policies, groupings
}
