package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/memory"
)

func TestStore_RollsBackOnError(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	unit := store.AddUnit("Finance", "FIN")
	now := time.Now().UTC()

	err := repos.Tx.InTx(context.Background(), func(ctx context.Context) error {
		_, err := repos.Tasks.Create(ctx, &task.Task{Title: "x", UnitID: unit, IsActive: true, CreatedAt: now})
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Zero(t, store.CountTasks())

	created, err := repos.Tasks.Create(context.Background(), &task.Task{Title: "y", UnitID: unit, IsActive: true, CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestStore_NestedTransactionsShareLock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()

	err := repos.Tx.InTx(context.Background(), func(ctx context.Context) error {
		return repos.Tx.InTx(ctx, func(inner context.Context) error {
			_, err := repos.Units.GetByName(inner, "missing")
			return err
		})
	})
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestStore_MarkDecidedOnlyFromPending(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	cr, err := repos.ChangeRequests.Create(ctx, &changerequest.ChangeRequest{
		UnitID:     1,
		ChangeType: changerequest.ChangeTypeCreate,
		Status:     changerequest.StatusPending,
		Payload:    []byte(`{"title":"t"}`),
	})
	require.NoError(t, err)

	cr.Stamp(changerequest.StatusRejected, 7, nil, time.Now())
	ok, err := repos.ChangeRequests.MarkDecided(ctx, cr)
	require.NoError(t, err)
	assert.True(t, ok)

	cr.Stamp(changerequest.StatusApproved, 8, nil, time.Now())
	ok, err = repos.ChangeRequests.MarkDecided(ctx, cr)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, _ := store.ChangeRequest(cr.ID)
	assert.Equal(t, changerequest.StatusRejected, stored.Status)
}

func TestStore_UnitLookupAndRoles(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	unit := store.AddUnit("Operations", "OPS")
	id := store.AddUser("Diego", "d@ops.test", "Usuario_Supervisor", unit, true)

	got, err := repos.Units.GetByName(ctx, " operations ")
	require.NoError(t, err)
	assert.Equal(t, unit, got.ID)

	u, err := repos.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.RoleSupervisor, u.Role)

	_, err = repos.Users.GetByID(ctx, 99)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestStore_FailNextFiresOnce(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	store.FailNext("GetUser", assert.AnError)

	_, err := repos.Users.GetByID(context.Background(), 1)
	require.ErrorIs(t, err, assert.AnError)
	_, err = repos.Users.GetByID(context.Background(), 1)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}
