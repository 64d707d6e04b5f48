package application

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type stubModule struct {
	name string
	err  error
}

func (m stubModule) Name() string { return m.name }

func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterControllers(stubController{key: "/" + m.name})
	return nil
}

func TestLoadModules(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.NoError(t, LoadModules(app, stubModule{name: "b"}, stubModule{name: "a"}))

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "/a", controllers[0].Key())
	require.Equal(t, "/b", controllers[1].Key())
	require.NotNil(t, app.EventPublisher())
}

func TestLoadModules_StopsOnError(t *testing.T) {
	app := New(&ApplicationOptions{})
	boom := errors.New("boom")
	err := LoadModules(app, stubModule{name: "a", err: boom}, stubModule{name: "b"})
	require.ErrorIs(t, err, boom)
	require.Empty(t, app.Controllers())
}

func TestMigrations_RequirePool(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterMigrations("tasks", fstest.MapFS{})
	require.ErrorIs(t, app.Migrations().Up(context.Background()), ErrNoPool)
	_, err := app.Migrations().Status(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
