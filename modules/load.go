package modules

import (
	"github.com/iota-uz/taskgate/modules/tasks"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/configuration"
)

// BuiltInModules returns every module of the server. A non-nil repos replaces
// postgres storage.
func BuiltInModules(conf *configuration.Configuration, repos *services.Repositories) []application.Module {
	return []application.Module{
		tasks.NewModule(TasksOptions(conf, repos)),
	}
}

func TasksOptions(conf *configuration.Configuration, repos *services.Repositories) *tasks.ModuleOptions {
	return &tasks.ModuleOptions{
		AuthzModelPath:  conf.Authz.ModelPath,
		AuthzPolicyPath: conf.Authz.PolicyPath,
		AuthzFlagPath:   conf.Authz.FlagConfigPath,
		AuthzMode:       conf.Authz.Mode,
		MigrationsDir:   conf.MigrationsDir,
		Repositories:    repos,
	}
}

// Load registers modules in order.
func Load(app application.Application, modules ...application.Module) error {
	return application.LoadModules(app, modules...)
}
