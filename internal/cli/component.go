package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
)

func newComponentCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "component",
		Aliases: []string{"components", "comp"},
		Short:   "Place service components on nodes",
	}
	cmd.AddCommand(
		newComponentAddCommand(app),
		newComponentRemoveCommand(app),
		newComponentListCommand(app),
	)
	return cmd
}

func newComponentAddCommand(app *App) *cobra.Command {
	var node, mode string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Place a component on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *model.Mode
			if mode != "" {
				parsed, err := parseMode(mode)
				if err != nil {
					return err
				}
				m = &parsed
			}
			return app.use(cmd.Context(), func(e *core.Engine) error {
				n, err := e.AddComponent(cmd.Context(), args[0], node, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Component %q added to node %q.\n", args[0], node)
				if n > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d companion components placed with it.\n", n-1)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&node, "node", "n", "", "node to place the component on")
	cmd.Flags().StringVar(&mode, "mode", "", "mode to check the cardinality in: default or ha (default: the service's mode)")
	cmd.MarkFlagRequired("node")
	return cmd
}

func newComponentRemoveCommand(app *App) *cobra.Command {
	var (
		node string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Remove a component from a node",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				if !confirm(cmd, yes, "Remove the component %q from the node %q?", args[0], node) {
					return nil
				}
				if err := e.RemoveComponent(cmd.Context(), args[0], node); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Component %q removed from node %q.\n", args[0], node)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&node, "node", "n", "", "node running the component")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagRequired("node")
	return cmd
}

type componentRow struct {
	Node      string `json:"node" yaml:"node"`
	Component string `json:"component" yaml:"component"`
	Service   string `json:"service" yaml:"service"`
}

func newComponentListCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list [NODE]",
		Aliases: []string{"ls"},
		Short:   "List the components of one node or of every node",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				nodes := e.Nodes()
				if len(args) == 1 {
					n, err := e.Node(args[0])
					if err != nil {
						return err
					}
					nodes = []model.Node{n}
				}

				rows := []componentRow{}
				for _, n := range nodes {
					for _, comp := range n.Components {
						row := componentRow{Node: n.Name, Component: comp}
						if def, _, ok := e.Catalog().LookupComponent(comp); ok {
							row.Service = def.Service()
						}
						rows = append(rows, row)
					}
				}
				return render(cmd.OutOrStdout(), output, rows, func(w io.Writer) {
					t := newTable(w)
					t.AppendHeader(table.Row{"Node", "Component", "Service"})
					for _, r := range rows {
						t.AppendRow(table.Row{r.Node, r.Component, r.Service})
					}
					t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
					t.Render()
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}
