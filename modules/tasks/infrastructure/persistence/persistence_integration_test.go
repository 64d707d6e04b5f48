package persistence_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/authz"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/configuration"
	"github.com/iota-uz/taskgate/pkg/serrors"
	"github.com/iota-uz/taskgate/pkg/types"
)

type seed struct {
	finance, ops           int64
	supervisor, member     int64
	opsMember, legacyStaff int64
}

func TestRepositories_ChangeRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := newTasksTestDB(t, ctx)
	s := seedUnits(t, ctx, pool)
	requests, decisions, queries := newServices(t, pool)

	auto, err := requests.SubmitCreate(as(s.supervisor, "finance"), services.CreateInput{
		Title:            "Quarter close",
		DueDate:          ptr("2026-03-31"),
		AssignedToUserID: ptr(s.member),
	})
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusApproved, auto.Status)
	require.NotNil(t, auto.TaskID)
	taskID := *auto.TaskID

	update, err := requests.SubmitUpdate(as(s.member, "Finance"), services.UpdateInput{
		TaskID:   taskID,
		Priority: types.Some("HIGH"),
		DueDate:  types.Null[string](),
	})
	require.NoError(t, err)
	require.Equal(t, changerequest.StatusPending, update.Status)

	queue, err := queries.ListPendingApprovals(as(s.supervisor, "Finance"))
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Quarter close", *queue[0].TaskTitle)
	assert.Equal(t, "Member", queue[0].RequesterName)
	assert.Equal(t, "FIN", queue[0].UnitCode)

	_, err = decisions.Decide(as(s.supervisor, "Finance"), services.DecideInput{RequestID: update.RequestID, Decision: "APPROVED"})
	require.NoError(t, err)

	visible, err := queries.ListVisibleTasks(as(s.member, "Finance"))
	require.NoError(t, err)
	require.Len(t, visible, 1)
	got := visible[0]
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "Quarter close", got.Title)
	assert.Equal(t, "Supervisor", got.CreatedByName)
	assert.Equal(t, "Member", *got.AssignedToName)

	_, err = decisions.Decide(as(s.supervisor, "Finance"), services.DecideInput{RequestID: update.RequestID, Decision: "REJECTED"})
	require.True(t, serrors.IsKind(err, serrors.KindConflict), "got %v", err)

	_, err = requests.SubmitComplete(as(s.opsMember, "Operations"), services.TransitionInput{TaskID: taskID})
	require.True(t, serrors.IsKind(err, serrors.KindForbidden), "got %v", err)

	mine, err := queries.ListOwnRequests(as(s.member, "Finance"), "APPROVED")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, update.RequestID, mine[0].ID)
}

func TestRepositories_ConcurrentDecisions(t *testing.T) {
	ctx := context.Background()
	pool := newTasksTestDB(t, ctx)
	s := seedUnits(t, ctx, pool)
	requests, decisions, _ := newServices(t, pool)

	receipt, err := requests.SubmitCreate(as(s.member, "Finance"), services.CreateInput{Title: "Contested"})
	require.NoError(t, err)

	const reviewers = 4
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = decisions.Decide(as(s.supervisor, "Finance"), services.DecideInput{
				RequestID: receipt.RequestID,
				Decision:  "APPROVED",
			})
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.True(t, serrors.IsKind(err, serrors.KindConflict), "got %v", err)
	}
	assert.Equal(t, 1, winners)

	var tasks int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&tasks))
	assert.Equal(t, 1, tasks)
}

func TestRepositories_PendingQueueUsesNormalizedRoles(t *testing.T) {
	ctx := context.Background()
	pool := newTasksTestDB(t, ctx)
	s := seedUnits(t, ctx, pool)
	requests, _, queries := newServices(t, pool)

	_, err := requests.SubmitCreate(as(s.legacyStaff, "Finance"), services.CreateInput{Title: "From legacy spelling"})
	require.NoError(t, err)

	queue, err := queries.ListPendingApprovals(as(s.supervisor, "Finance"))
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "From legacy spelling", *queue[0].TaskTitle)
	assert.Nil(t, queue[0].TaskID)
}

func newServices(t *testing.T, pool *pgxpool.Pool) (*services.ChangeRequestService, *services.DecisionService, *services.TaskQueryService) {
	t.Helper()
	policies, groupings := permissions.Policies()
	az, err := authz.NewService(authz.Config{Policies: policies, Groupings: groupings})
	require.NoError(t, err)

	repos := persistence.NewRepositories(pool)
	gate := services.NewPermissionGate(repos.Users, az)
	scope := services.NewUnitScope(repos.Units, repos.Users, repos.Tasks)
	decisions := services.NewDecisionService(repos, gate, scope, nil, nil)
	requests := services.NewChangeRequestService(repos, gate, scope, decisions, nil, nil)
	return requests, decisions, services.NewTaskQueryService(repos, gate, scope)
}

func seedUnits(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seed {
	t.Helper()
	var s seed
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO organizational_units (name, code) VALUES ('Finance', 'FIN') RETURNING id`).Scan(&s.finance))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO organizational_units (name, code) VALUES ('Operations', 'OPS') RETURNING id`).Scan(&s.ops))

	insertUser := func(name, email, role string, unit int64) int64 {
		var id int64
		require.NoError(t, pool.QueryRow(ctx,
			`INSERT INTO users (name, email, role, unit_id) VALUES ($1, $2, $3, $4) RETURNING id`,
			name, email, role, unit,
		).Scan(&id))
		return id
	}
	s.supervisor = insertUser("Supervisor", "sup@fin.test", "SUPERVISOR", s.finance)
	s.member = insertUser("Member", "member@fin.test", "STANDARD", s.finance)
	s.legacyStaff = insertUser("Legacy", "legacy@fin.test", "Usuario Estándar", s.finance)
	s.opsMember = insertUser("Ops", "ops@ops.test", "STANDARD", s.ops)
	return s
}

func as(userID int64, unit string) context.Context {
	return composables.WithIdentity(context.Background(), composables.Identity{UserID: userID, UnitName: unit})
}

func ptr[T any](v T) *T {
	return &v
}

func newTasksTestDB(tb testing.TB, ctx context.Context) *pgxpool.Pool {
	tb.Helper()
	isCI := strings.TrimSpace(os.Getenv("CI")) != "" || strings.EqualFold(strings.TrimSpace(os.Getenv("GITHUB_ACTIONS")), "true")

	conf := configuration.Use()
	db := conf.Database
	adminDSN := "postgres://" + db.User + ":" + db.Password + "@" + db.Host + ":" + db.Port + "/postgres?sslmode=disable"
	adminConn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		if isCI {
			require.NoError(tb, err)
		}
		tb.Skip("postgres is not reachable; skipping integration test")
	}
	tb.Cleanup(func() { _ = adminConn.Close(ctx) })

	dbName := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, "tasks_"+strings.ToLower(tb.Name()))

	_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName)
	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	require.NoError(tb, err)
	tb.Cleanup(func() {
		_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)")
	})

	dsn := "postgres://" + db.User + ":" + db.Password + "@" + db.Host + ":" + db.Port + "/" + dbName + "?sslmode=disable"
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(tb, err)
	tb.Cleanup(pool.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	migrations := application.NewMigrationManager(pool, logger)
	migrations.Register("tasks", persistence.Migrations())
	require.NoError(tb, migrations.Up(ctx))
	return pool
}
