package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
	"github.com/edvin/clusterplan/internal/session"
)

func newCreateCommand(app *App) *cobra.Command {
	var (
		opts     session.ClusterOptions
		location string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a cluster and manage it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch model.Location(location) {
			case model.LocationLocal, model.LocationRemote:
				opts.Location = model.Location(location)
			default:
				return fmt.Errorf("--location must be %q or %q", model.LocationLocal, model.LocationRemote)
			}
			e, err := app.manager.Create(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			c := e.Cluster()
			fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q created (domain: %s).\n", c.Name, c.Domain)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Domain, "domain", "d", "", "domain name of the cluster (default NAME.local)")
	cmd.Flags().StringVar(&opts.Realm, "realm", "", "Kerberos realm (default: the domain in upper case)")
	cmd.Flags().StringVar(&location, "location", string(model.LocationLocal), "where the nodes are launched: local or remote")
	cmd.Flags().StringSliceVar(&opts.Bundles, "bundle", nil, "bundle to activate, may be repeated")
	return cmd
}

func newManageCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "manage NAME",
		Short: "Make a cluster the target of the following commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager.Manage(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q managed.\n", args[0])
			return nil
		},
	}
}

func newExitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Stop managing the current cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.manager.Exit() {
				fmt.Fprintln(cmd.OutOrStdout(), "No cluster managed.")
			}
			return nil
		},
	}
}

func newDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a cluster and its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, yes, "Delete the cluster %q?", args[0]) {
				return nil
			}
			if err := app.manager.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q deleted.\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newListCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clusters, err := app.manager.List(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, clusters, func(w io.Writer) {
				t := newTable(w)
				t.AppendHeader(table.Row{"Name", "Domain", "Location", "Nodes", "Services"})
				for _, c := range clusters {
					if c.Broken {
						t.AppendRow(table.Row{c.Name, "(broken, see repair)", "", "", ""})
						continue
					}
					t.AppendRow(table.Row{c.Name, c.Domain, c.Location, c.Nodes, strings.Join(c.Services, ", ")})
				}
				t.Render()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}

func newRepairCommand(app *App) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "repair NAME",
		Short: "Reinitialize a cluster whose snapshot is lost or unreadable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repaired, err := app.manager.Repair(cmd.Context(), args[0], domain)
			if err != nil {
				return err
			}
			if repaired {
				fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q repaired. Its topology has been reset.\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q is healthy, nothing to repair.\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "domain name of the cluster")
	return cmd
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cluster in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				c := e.Cluster()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cluster:  %s\n", c.Name)
				fmt.Fprintf(out, "Domain:   %s\n", c.Domain)
				fmt.Fprintf(out, "Realm:    %s\n", c.Realm)
				fmt.Fprintf(out, "Location: %s\n", c.Location)
				fmt.Fprintf(out, "Nodes:    %d\n", len(c.Nodes))
				if len(c.Bundles) > 0 {
					fmt.Fprintf(out, "Bundles:  %s\n", strings.Join(c.Bundles, ", "))
				}
				return nil
			})
		},
	}
}
