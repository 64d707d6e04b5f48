package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/pkg/authz"
)

func TestPolicies_MatchCatalog(t *testing.T) {
	policies, groupings := Policies()
	svc, err := authz.NewService(authz.Config{Policies: policies, Groupings: groupings})
	require.NoError(t, err)

	standard, err := svc.PermissionsFor("STANDARD")
	require.NoError(t, err)
	require.ElementsMatch(t, StandardPermissions, standard)
	require.NotContains(t, standard, TaskApproveChanges)

	supervisor, err := svc.PermissionsFor("SUPERVISOR")
	require.NoError(t, err)
	require.ElementsMatch(t, All, supervisor)
}
