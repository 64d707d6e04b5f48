package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/memory"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/authz"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/eventbus"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	requests  *services.ChangeRequestService
	decisions *services.DecisionService
	queries   *services.TaskQueryService

	finance, ops int64

	ana   int64 // finance supervisor
	bruno int64 // finance standard
	carla int64 // finance standard, accented role spelling
	diego int64 // ops supervisor
	elena int64 // ops standard

	eventsMu  sync.Mutex
	submitted []*changerequest.SubmittedEvent
	decided   []*changerequest.DecidedEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{store: store}
	f.finance = store.AddUnit("Finance", "FIN")
	f.ops = store.AddUnit("Operations", "OPS")
	f.ana = store.AddUser("Ana", "ana@fin.test", user.RoleSupervisor, f.finance, true)
	f.bruno = store.AddUser("Bruno", "bruno@fin.test", user.RoleStandard, f.finance, true)
	f.carla = store.AddUser("Carla", "carla@fin.test", "Usuario Estándar", f.finance, true)
	f.diego = store.AddUser("Diego", "diego@ops.test", user.RoleSupervisor, f.ops, true)
	f.elena = store.AddUser("Elena", "elena@ops.test", user.RoleStandard, f.ops, true)

	policies, groupings := permissions.Policies()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	az, err := authz.NewService(authz.Config{Policies: policies, Groupings: groupings, Logger: logger})
	require.NoError(t, err)

	bus := eventbus.NewEventPublisher(logger)
	bus.Subscribe(func(e *changerequest.SubmittedEvent) {
		f.eventsMu.Lock()
		defer f.eventsMu.Unlock()
		f.submitted = append(f.submitted, e)
	})
	bus.Subscribe(func(e *changerequest.DecidedEvent) {
		f.eventsMu.Lock()
		defer f.eventsMu.Unlock()
		f.decided = append(f.decided, e)
	})

	var tick atomic.Int64
	clock := services.Clock(func() time.Time {
		return epoch.Add(time.Duration(tick.Add(1)) * time.Second)
	})

	repos := store.Repositories()
	gate := services.NewPermissionGate(repos.Users, az)
	scope := services.NewUnitScope(repos.Units, repos.Users, repos.Tasks)
	f.decisions = services.NewDecisionService(repos, gate, scope, bus, clock)
	f.requests = services.NewChangeRequestService(repos, gate, scope, f.decisions, bus, clock)
	f.queries = services.NewTaskQueryService(repos, gate, scope)
	return f
}

// as builds a request context for a caller asserting the given unit name.
func as(userID int64, unit string) context.Context {
	return composables.WithIdentity(context.Background(), composables.Identity{
		UserID:   userID,
		Role:     "ignored",
		UnitName: unit,
	})
}

func (f *fixture) createTask(t *testing.T, title string, assignee *int64) int64 {
	t.Helper()
	receipt, err := f.requests.SubmitCreate(as(f.ana, "finance"), services.CreateInput{
		Title:            title,
		AssignedToUserID: assignee,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt.TaskID)
	return *receipt.TaskID
}

func requireKind(t *testing.T, err error, kind serrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, serrors.KindOf(err), "unexpected error: %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
