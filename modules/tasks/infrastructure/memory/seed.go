package memory

import "github.com/iota-uz/taskgate/modules/tasks/domain/user"

// SeedDemo loads a small dataset for running the server without postgres.
func SeedDemo(s *Store) {
	finance := s.AddUnit("Finance", "FIN")
	ops := s.AddUnit("Operations", "OPS")
	s.AddUser("Ana Supervisor", "ana@finance.test", user.RoleSupervisor, finance, true)
	s.AddUser("Bruno Standard", "bruno@finance.test", user.RoleStandard, finance, true)
	s.AddUser("Carla Standard", "carla@finance.test", "Usuario Estándar", finance, true)
	s.AddUser("Diego Supervisor", "diego@ops.test", user.RoleSupervisor, ops, true)
}
