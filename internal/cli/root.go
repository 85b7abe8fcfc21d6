package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs clusterctl with args.
func Execute(ctx context.Context, app *App, args []string) error {
	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusterctl [sub-command]",
		Short: "Plan the topology of virtual clusters",
		Long: `clusterctl keeps the planned topology of virtual clusters: the nodes, the
services installed on them and where each service component runs.

A cluster can be managed with "clusterctl manage"; the following commands then
apply to it until "clusterctl exit". Other clusters are addressed with --cluster.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.restore(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.persist()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().StringVarP(&app.cluster, "cluster", "c", "", "cluster to operate on instead of the managed one")

	cmd.AddCommand(
		newCreateCommand(app),
		newManageCommand(app),
		newExitCommand(app),
		newDeleteCommand(app),
		newListCommand(app),
		newRepairCommand(app),
		newStatusCommand(app),
		newNodeCommand(app),
		newServiceCommand(app),
		newComponentCommand(app),
		newBundleCommand(app),
		newPlacementCommand(app),
		newApplyCommand(app),
		newExportCommand(app),
	)
	return cmd
}
