package authz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

func newTestService(t *testing.T, mode Mode) *Service {
	t.Helper()
	root := filepath.Join("testdata")
	svc, err := NewService(Config{
		ModelPath:    filepath.Join(root, "model.conf"),
		PolicyPath:   filepath.Join(root, "policy.csv"),
		FlagProvider: StaticFlagProvider(mode),
	})
	require.NoError(t, err)
	return svc
}

func TestServiceAuthorize(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("STANDARD", "TASK_CREATE", 1)))
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("SUPERVISOR", "TASK_CREATE", 2)))
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("SUPERVISOR", "TASK_APPROVE_CHANGES", 2)))
}

func TestServiceAuthorizeDenied(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	err := svc.Authorize(context.Background(), NewRequest("STANDARD", "TASK_APPROVE_CHANGES", 1))
	require.Error(t, err)
	require.True(t, serrors.IsKind(err, serrors.KindForbidden))

	err = svc.Authorize(context.Background(), NewRequest("", "TASK_VIEW_ALL", 0))
	require.True(t, serrors.IsKind(err, serrors.KindForbidden))
}

func TestServiceAuthorizeShadowMode(t *testing.T) {
	svc := newTestService(t, ModeShadow)
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("STANDARD", "TASK_APPROVE_CHANGES", 1)))
}

func TestServiceMode(t *testing.T) {
	svc := newTestService(t, ModeDisabled)
	require.Equal(t, ModeDisabled, svc.Mode())
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("nobody", "TASK_APPROVE_CHANGES", 1)))
}

func TestServicePermissionsFor(t *testing.T) {
	svc := newTestService(t, ModeEnforce)

	standard, err := svc.PermissionsFor("STANDARD")
	require.NoError(t, err)
	require.Equal(t, []string{"TASK_COMPLETE_UNIT", "TASK_CREATE", "TASK_DELETE_UNIT", "TASK_EDIT_UNIT", "TASK_VIEW_ALL"}, standard)

	supervisor, err := svc.PermissionsFor("SUPERVISOR")
	require.NoError(t, err)
	require.Contains(t, supervisor, "TASK_APPROVE_CHANGES")
	require.Contains(t, supervisor, "TASK_CREATE")
	require.Len(t, supervisor, 6)

	unknown, err := svc.PermissionsFor("GUEST")
	require.NoError(t, err)
	require.Empty(t, unknown)
}

func TestServiceInlineCatalog(t *testing.T) {
	svc, err := NewService(Config{
		Policies: []Policy{
			{Subject: "standard", Permission: "TASK_CREATE"},
			{Subject: "supervisor", Permission: "TASK_APPROVE_CHANGES"},
		},
		Groupings: []Grouping{{Member: "supervisor", Parent: "standard"}},
	})
	require.NoError(t, err)
	require.Equal(t, ModeEnforce, svc.Mode())

	perms, err := svc.PermissionsFor("supervisor")
	require.NoError(t, err)
	require.Equal(t, []string{"TASK_APPROVE_CHANGES", "TASK_CREATE"}, perms)

	res, err := svc.Inspect(context.Background(), NewRequest("supervisor", "TASK_CREATE", 0))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.NotEmpty(t, res.Trace)
}

func TestNewServiceRequiresPolicies(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestFileFlagProvider(t *testing.T) {
	p := NewFileFlagProvider(filepath.Join("testdata", "flags.yaml"), ModeEnforce)
	require.Equal(t, ModeShadow, p.Mode())

	missing := NewFileFlagProvider(filepath.Join(t.TempDir(), "absent.yaml"), ModeEnforce)
	require.Equal(t, ModeEnforce, missing.Mode())

	path := filepath.Join(t.TempDir(), "flags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: disabled\n"), 0o644))
	require.Equal(t, ModeDisabled, NewFileFlagProvider(path, ModeEnforce).Mode())
}
