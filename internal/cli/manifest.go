package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/manifest"
	"github.com/edvin/clusterplan/internal/session"
)

func newPlacementCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "placement",
		Short: "Show which nodes run each component of the installed services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				view := e.View()
				return render(cmd.OutOrStdout(), output, view, func(w io.Writer) {
					t := newTable(w)
					t.AppendHeader(table.Row{"Service", "Component", "Nodes"})
					for _, svc := range slices.Sorted(maps.Keys(view)) {
						comps := view[svc]
						for _, comp := range slices.Sorted(maps.Keys(comps)) {
							t.AppendRow(table.Row{svc, comp, strings.Join(comps[comp], ", ")})
						}
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

func newApplyCommand(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply -f FILE",
		Short: "Create or complete a cluster from a manifest",
		Long: `Apply adds what the manifest lists and the cluster lacks. The cluster named by
the manifest is created and managed when it does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manifest.Load(file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			exists, err := app.Store.Exists(ctx, m.Name)
			if err != nil {
				return err
			}
			if !exists {
				if _, err := app.manager.Create(ctx, m.Name, session.ClusterOptions{
					Domain:   m.Domain,
					Realm:    m.Realm,
					Location: m.Location,
				}); err != nil {
					return err
				}
			}

			return app.manager.Use(ctx, m.Name, func(e *core.Engine) error {
				res, err := manifest.Apply(ctx, e, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q: %d bundles, %d nodes, %d services, %d components and %d versions applied.\n",
					e.Name(), res.Bundles, res.Nodes, res.Services, res.Components, res.Versions)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "manifest file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCommand(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the topology of a cluster as a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.use(cmd.Context(), func(e *core.Engine) error {
				m := manifest.Export(e)
				if file != "" {
					if err := manifest.Write(m, file); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cluster %q exported to %s.\n", e.Name(), file)
					return nil
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(m)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")
	return cmd
}
