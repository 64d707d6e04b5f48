package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/taskgate/modules"
	"github.com/iota-uz/taskgate/modules/tasks"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/pkg/authz"
	"github.com/iota-uz/taskgate/pkg/configuration"
)

type permissionsOutput struct {
	Role        string       `json:"role"`
	Mode        string       `json:"mode"`
	Permissions []string     `json:"permissions"`
	Check       *checkOutput `json:"check,omitempty"`
}

type checkOutput struct {
	Permission string   `json:"permission"`
	Allowed    bool     `json:"allowed"`
	Trace      []string `json:"trace"`
}

func newPermissionsCmd() *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:   "permissions <ROLE>",
		Short: "Print the permission codes granted to a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := user.NormalizeRole(args[0])
			if !ok {
				return fmt.Errorf("unknown role %q", args[0])
			}

			conf := configuration.Use()
			defer conf.Unload()

			az, err := tasks.NewAuthzService(modules.TasksOptions(conf, nil), conf.Logger())
			if err != nil {
				return err
			}
			perms, err := az.PermissionsFor(string(role))
			if err != nil {
				return err
			}
			out := permissionsOutput{
				Role:        string(role),
				Mode:        string(az.Mode()),
				Permissions: perms,
			}
			if check != "" {
				res, err := az.Inspect(cmd.Context(), authz.NewRequest(string(role), check, 0))
				if err != nil {
					return err
				}
				out.Check = &checkOutput{
					Permission: res.Request.Permission,
					Allowed:    res.Allowed,
					Trace:      res.Trace,
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "permission code to evaluate against the role, with the matching policy")
	return cmd
}
