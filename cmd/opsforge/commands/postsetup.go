package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPostSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post-setup",
		Short: "Provision optional cluster components after initial setup",
	}

	cmd.AddCommand(newPostSetupAgentsCommand())
	cmd.AddCommand(newPostSetupExternalNicsCommand())

	return cmd
}

func newPostSetupAgentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Provision missing cluster agent services",
		Long: `Compute the set of agent services missing from the service directory and
register them. Services that already exist are never recreated; re-running
this command on a fully provisioned cluster performs no changes.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			procs, err := rt.planner.PlanAgentServices(ctx, rt.cfg.ApplicationUUID, rt.cfg.AgentServices)
			if err != nil {
				return err
			}

			rt.log.Infof("provisioning %d of %d agent services", len(procs), len(rt.cfg.AgentServices))
			return rt.engine.Run(ctx, procs)
		},
	}
}

func newPostSetupExternalNicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "external-nics",
		Short: "Check external network reachability of the services zone",
		Long: `Confirm whether the services zone can reach external networks. When it
cannot, imports from remote sources fail until an external NIC is added
through the cluster's network tooling.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			reach, err := rt.topology.CheckExternalReachability(ctx)
			if err != nil {
				return err
			}

			if reach.NeedsExternalNIC {
				fmt.Println("The services zone has no external NIC. Add one through the")
				fmt.Println("cluster network tooling, then re-run the failed command.")
				return nil
			}
			fmt.Println("External network reachability confirmed.")
			return nil
		},
	}
}
