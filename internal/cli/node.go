package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/core"
)

func newNodeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes"},
		Short:   "Manage the nodes of a cluster",
	}
	cmd.AddCommand(
		newNodeAddCommand(app),
		newNodeRemoveCommand(app),
		newNodeEditCommand(app),
		newNodeListCommand(app),
	)
	return cmd
}

func newNodeAddCommand(app *App) *cobra.Command {
	var spec core.NodeSpec
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Name = args[0]
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if err := e.AddNode(cmd.Context(), spec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Node %q added to cluster %q.\n", spec.Name, e.Name())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&spec.IP, "ip", "i", "", "IP address of the node")
	cmd.Flags().IntVarP(&spec.RAM, "ram", "r", 0, "RAM of the node in MB")
	cmd.Flags().IntVarP(&spec.CPUs, "cpus", "p", 1, "number of CPUs")
	cmd.Flags().StringSliceVarP(&spec.Types, "type", "t", nil, "host type of the node, may be repeated")
	cmd.MarkFlagRequired("ip")
	cmd.MarkFlagRequired("ram")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newNodeRemoveCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Remove a node and the components it runs",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if !confirm(cmd, yes, "Remove the node %q from the cluster %q?", args[0], e.Name()) {
					return nil
				}
				if err := e.RemoveNode(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Node %q removed from cluster %q.\n", args[0], e.Name())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newNodeEditCommand(app *App) *cobra.Command {
	var (
		ip, name  string
		ram, cpus int
	)
	cmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Change the IP, RAM, CPUs or name of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit core.NodeEdit
			flags := cmd.Flags()
			if flags.Changed("ip") {
				edit.IP = &ip
			}
			if flags.Changed("ram") {
				edit.RAM = &ram
			}
			if flags.Changed("cpus") {
				edit.CPUs = &cpus
			}
			if flags.Changed("name") {
				edit.NewName = &name
			}
			return app.use(cmd.Context(), func(e *core.Engine) error {
				changes, err := e.EditNode(cmd.Context(), args[0], edit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(changes) == 0 {
					fmt.Fprintf(out, "Node %q unchanged.\n", args[0])
					return nil
				}
				for _, c := range changes {
					fmt.Fprintf(out, "Changed %s of node %q: %v -> %v\n", c.Field, args[0], c.Old, c.New)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&ip, "ip", "i", "", "new IP address")
	cmd.Flags().IntVarP(&ram, "ram", "r", 0, "new RAM in MB")
	cmd.Flags().IntVarP(&cpus, "cpus", "p", 0, "new number of CPUs")
	cmd.Flags().StringVarP(&name, "name", "n", "", "new node name")
	return cmd
}

func newNodeListCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the nodes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				nodes := e.Nodes()
				return render(cmd.OutOrStdout(), output, nodes, func(w io.Writer) {
					t := newTable(w)
					t.AppendHeader(table.Row{"Name", "Types", "IP", "RAM (MB)", "CPUs", "Components"})
					for _, n := range nodes {
						t.AppendRow(table.Row{n.Name, strings.Join(n.Types, ", "), n.IP, n.RAM, n.CPUs, len(n.Components)})
					}
					t.Render()
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}
