package tasks_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/modules/tasks"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/memory"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/authz"
)

func TestModule_RegistersControllersOnMemoryStore(t *testing.T) {
	store := memory.NewStore()
	memory.SeedDemo(store)
	repos := store.Repositories()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger})
	require.NoError(t, application.LoadModules(app, tasks.NewModule(&tasks.ModuleOptions{Repositories: &repos})))

	require.Len(t, app.Controllers(), 1)
	require.Equal(t, 2, app.EventPublisher().SubscribersCount())

	r := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(r)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewAuthzService_DefaultsToEnforce(t *testing.T) {
	az, err := tasks.NewAuthzService(&tasks.ModuleOptions{}, logrus.New())
	require.NoError(t, err)
	require.Equal(t, authz.ModeEnforce, az.Mode())

	perms, err := az.PermissionsFor("supervisor")
	require.NoError(t, err)
	require.Contains(t, perms, "TASK_APPROVE_CHANGES")
}
