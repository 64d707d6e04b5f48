package tasks

import (
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/taskgate/modules/tasks/permissions"
	"github.com/iota-uz/taskgate/modules/tasks/presentation/controllers"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/authz"
	"github.com/iota-uz/taskgate/pkg/eventbus"
)

type ModuleOptions struct {
	AuthzModelPath  string
	AuthzPolicyPath string
	AuthzFlagPath   string
	AuthzMode       string
	// MigrationsDir replaces the embedded schema when it names an existing directory.
	MigrationsDir string
	// Repositories replaces postgres storage, e.g. with the in-memory store.
	Repositories *services.Repositories
	Clock        services.Clock
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	az, err := NewAuthzService(m.opts, app.Logger())
	if err != nil {
		return err
	}

	var repos services.Repositories
	if m.opts.Repositories != nil {
		repos = *m.opts.Repositories
	} else {
		repos = persistence.NewRepositories(app.DB())
		app.RegisterMigrations(m.Name(), m.migrations())
	}

	bus := app.EventPublisher()
	subscribeEventLog(bus, app.Logger())

	gate := services.NewPermissionGate(repos.Users, az)
	scope := services.NewUnitScope(repos.Units, repos.Users, repos.Tasks)
	decisions := services.NewDecisionService(repos, gate, scope, bus, m.opts.Clock)
	requests := services.NewChangeRequestService(repos, gate, scope, decisions, bus, m.opts.Clock)
	queries := services.NewTaskQueryService(repos, gate, scope)

	app.RegisterControllers(
		controllers.NewTasksAPIController(requests, decisions, queries),
	)
	return nil
}

func (m *Module) Name() string {
	return "tasks"
}

func (m *Module) migrations() fs.FS {
	if dir := m.opts.MigrationsDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return persistence.Migrations()
}

// NewAuthzService builds the permission catalog: the policy file when one is
// configured, the built-in role catalog otherwise.
func NewAuthzService(opts *ModuleOptions, logger *logrus.Logger) (*authz.Service, error) {
	policies, groupings := permissions.Policies()
	return authz.NewService(authz.Config{
		ModelPath:  opts.AuthzModelPath,
		PolicyPath: opts.AuthzPolicyPath,
		Policies:   policies,
		Groupings:  groupings,
		FlagPath:   opts.AuthzFlagPath,
		FlagMode:   authz.ParseMode(opts.AuthzMode),
		Logger:     logger,
	})
}

// subscribeEventLog records committed lifecycle events for downstream consumers.
func subscribeEventLog(bus eventbus.EventBus, logger *logrus.Logger) {
	log := logger.WithField("component", "tasks.events")
	bus.Subscribe(func(e *changerequest.SubmittedEvent) {
		log.WithFields(logrus.Fields{
			"change_request_id": e.Request.ID,
			"change_type":       e.Request.ChangeType,
			"unit_id":           e.Request.UnitID,
			"auto_approved":     e.AutoApproved,
		}).Debug("change request submitted event")
	})
	bus.Subscribe(func(e *changerequest.DecidedEvent) {
		log.WithFields(logrus.Fields{
			"change_request_id": e.Request.ID,
			"decision":          e.Decision,
			"reviewer_id":       e.ReviewerID,
			"changed_fields":    e.ChangedFields,
		}).Debug("change request decided event")
	})
}
