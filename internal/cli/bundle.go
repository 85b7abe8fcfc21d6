package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/core"
)

func newBundleCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bundle",
		Aliases: []string{"bundles"},
		Short:   "Activate service bundles on a cluster",
	}
	cmd.AddCommand(
		newBundleAddCommand(app),
		newBundleRemoveCommand(app),
		newBundleListCommand(app),
	)
	return cmd
}

func parsePosition(s string) (int, error) {
	switch s {
	case "first":
		return core.BundleFirst, nil
	case "last", "":
		return core.BundleLast, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("--position must be first, last or an index, got %q", s)
	}
	return i, nil
}

func newBundleAddCommand(app *App) *cobra.Command {
	var position string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Activate a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(position)
			if err != nil {
				return err
			}
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if err := e.AddBundle(cmd.Context(), args[0], pos); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bundle %q activated on cluster %q.\n", args[0], e.Name())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&position, "position", "last", "place in the bundle list: first, last or an index")
	return cmd
}

func newBundleRemoveCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Deactivate a bundle",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if !confirm(cmd, yes, "Deactivate the bundle %q on the cluster %q?", args[0], e.Name()) {
					return nil
				}
				if err := e.RemoveBundle(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bundle %q deactivated on cluster %q.\n", args[0], e.Name())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newBundleListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the available bundles and the active ones",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				available, err := e.AvailableBundles()
				if err != nil {
					return err
				}
				active := e.Bundles()
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Bundle", "Active"})
				for _, name := range available {
					mark := ""
					if i := slices.Index(active, name); i >= 0 {
						mark = strconv.Itoa(i + 1)
					}
					t.AppendRow(table.Row{name, mark})
				}
				t.Render()
				return nil
			})
		},
	}
}
