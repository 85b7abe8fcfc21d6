package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
)

func newServiceCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"services", "svc"},
		Short:   "Install and inspect services",
	}
	cmd.AddCommand(
		newServiceAddCommand(app),
		newServiceRemoveCommand(app),
		newServiceCheckCommand(app),
		newServiceAssignCommand(app),
		newServiceVersionCommand(app),
		newServiceListCommand(app),
	)
	return cmd
}

func newServiceAddCommand(app *App) *cobra.Command {
	var (
		mode      string
		auto      bool
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Install a service",
		Long: `Install a service on the cluster.

With --auto the service's client components are placed on every matching node.
With --recursive the missing required services are installed first, each with
its components placed automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			opts := core.InstallOptions{Mode: m, Auto: auto}
			return app.use(cmd.Context(), func(e *core.Engine) error {
				out := cmd.OutOrStdout()
				if recursive {
					installed, err := e.InstallRecursive(cmd.Context(), args[0], opts)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Services installed on cluster %q: %s\n", e.Name(), strings.Join(installed, ", "))
					return nil
				}

				n, err := e.AddService(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Service %q installed on cluster %q.\n", args[0], e.Name())
				if n > 0 {
					fmt.Fprintf(out, "%d components placed automatically.\n", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "installation mode: default or ha")
	cmd.Flags().BoolVar(&auto, "auto", false, "place the client components automatically")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "install the missing required services first")
	return cmd
}

func newServiceRemoveCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Uninstall a service and its components",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if !confirm(cmd, yes, "Remove the service %q and all its components from the cluster %q?", args[0], e.Name()) {
					return nil
				}
				if err := e.RemoveService(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %q removed from cluster %q.\n", args[0], e.Name())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newServiceCheckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check NAME",
		Short: "Show what an installed service still lacks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				missing, err := e.ServiceStatus(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				mode := model.ModeOf(e.IsHA(args[0]))
				if len(missing) == 0 {
					fmt.Fprintf(out, "The service %q is complete (%s mode).\n", args[0], mode)
					return nil
				}
				fmt.Fprintf(out, "The service %q is missing components (%s mode):\n", args[0], mode)
				for _, name := range slices.Sorted(maps.Keys(missing)) {
					fmt.Fprintf(out, " - %d %s\n", missing[name], name)
				}
				return nil
			})
		},
	}
}

func newServiceAssignCommand(app *App) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "assign NAME",
		Short: "Place the missing components of an installed service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			return app.use(cmd.Context(), func(e *core.Engine) error {
				n, err := e.AutoAssign(cmd.Context(), args[0], m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d components of %q placed.\n", n, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "mode to fill: default or ha")
	return cmd
}

func newServiceVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version NAME [CONSTRAINT]",
		Short: "Show or pin the version of a service",
		Long: `Without CONSTRAINT the version in effect is printed. Otherwise the highest
catalog version satisfying the semver constraint (for example "2.7.3" or
"~2.7") is pinned.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					v, err := e.ServiceVersion(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(out, v)
					return nil
				}
				v, err := e.SetServiceVersion(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Service %q pinned to version %s.\n", args[0], v)
				return nil
			})
		},
	}
}

type serviceRow struct {
	Name    string `json:"name" yaml:"name"`
	Mode    string `json:"mode" yaml:"mode"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Missing int    `json:"missing" yaml:"missing"`
}

func newServiceListCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the installed services",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				var rows []serviceRow
				for _, name := range e.Cluster().Services {
					row := serviceRow{Name: name, Mode: model.ModeOf(e.IsHA(name)).String()}
					row.Version, _ = e.ServiceVersion(name)
					if missing, err := e.ServiceStatus(name); err == nil {
						for _, n := range missing {
							row.Missing += n
						}
					}
					rows = append(rows, row)
				}
				return render(cmd.OutOrStdout(), output, rows, func(w io.Writer) {
					t := newTable(w)
					t.AppendHeader(table.Row{"Service", "Mode", "Version", "Missing"})
					for _, r := range rows {
						t.AppendRow(table.Row{r.Name, r.Mode, r.Version, r.Missing})
					}
					t.Render()
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}
