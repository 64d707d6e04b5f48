package application

import (
	"io/fs"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taskgate/pkg/eventbus"
)

// Controller mounts a set of routes on the shared router.
type Controller interface {
	Register(r *mux.Router)
	Key() string
}

// Module wires one bounded context into the application.
type Module interface {
	Name() string
	Register(app Application) error
}

// Application is the explicit composition root handed to modules at startup.
type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	Migrations() MigrationManager
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterMigrations(name string, fsys fs.FS)
}
