package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/modules/tasks/permissions"
)

func TestPermissionsCmd(t *testing.T) {
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"permissions", "Usuario Estándar"})
	require.NoError(t, cmd.Execute())

	var got permissionsOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "STANDARD", got.Role)
	require.ElementsMatch(t, permissions.StandardPermissions, got.Permissions)
}

func TestPermissionsCmd_UnknownRole(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"permissions", "auditor"})
	require.Error(t, cmd.Execute())
}

func TestPermissionsCmd_Check(t *testing.T) {
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))

	run := func(role string) permissionsOutput {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"permissions", role, "--check", "task_approve_changes"})
		require.NoError(t, cmd.Execute())
		var got permissionsOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		require.NotNil(t, got.Check)
		return got
	}

	supervisor := run("supervisor")
	require.Equal(t, permissions.TaskApproveChanges, supervisor.Check.Permission)
	require.True(t, supervisor.Check.Allowed)
	require.NotEmpty(t, supervisor.Check.Trace)

	standard := run("standard")
	require.False(t, standard.Check.Allowed)
}
