package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
	"github.com/edvin/clusterplan/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	home := t.TempDir()
	return &App{
		Store:    store.NewFileStore(home),
		Catalog:  catalog.Default(),
		Logger:   zerolog.Nop(),
		StateDir: home,
	}
}

// run executes one clusterctl invocation with stdin as the terminal input.
func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := run(t, app, "", args...)
	require.NoError(t, err, out)
	return out
}

func managed(t *testing.T, app *App) string {
	t.Helper()
	state, err := loadState(app.StateDir)
	require.NoError(t, err)
	return state.ManagedCluster
}

func TestCLI_Lifecycle(t *testing.T) {
	app := newTestApp(t)

	out := mustRun(t, app, "create", "hadoop", "--domain", "example.org")
	assert.Contains(t, out, `Cluster "hadoop" created (domain: example.org).`)
	assert.Equal(t, "hadoop", managed(t, app))

	mustRun(t, app, "node", "add", "m1", "--ip", "10.0.0.1", "--ram", "4096", "--type", "master")
	mustRun(t, app, "node", "add", "w1", "--ip", "10.0.0.2", "--ram", "8192", "--type", "worker")

	out = mustRun(t, app, "service", "add", "ZOOKEEPER", "--auto")
	assert.Contains(t, out, "2 components placed automatically.")

	out = mustRun(t, app, "service", "check", "ZOOKEEPER")
	assert.Contains(t, out, " - 1 ZOOKEEPER_SERVER")

	mustRun(t, app, "component", "add", "ZOOKEEPER_SERVER", "--node", "m1")
	out = mustRun(t, app, "service", "check", "ZOOKEEPER")
	assert.Contains(t, out, `The service "ZOOKEEPER" is complete (default mode).`)

	out = mustRun(t, app, "placement", "-o", "json")
	var view model.PlacementView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, []string{"m1"}, view.Hosts("ZOOKEEPER", "ZOOKEEPER_SERVER"))
	assert.Equal(t, []string{"m1", "w1"}, view.Hosts("ZOOKEEPER", "ZOOKEEPER_CLIENT"))

	out = mustRun(t, app, "component", "list", "w1")
	assert.Contains(t, out, "ZOOKEEPER_CLIENT")
	assert.NotContains(t, out, "ZOOKEEPER_SERVER")

	out = mustRun(t, app, "service", "version", "ZOOKEEPER", "~3.4.0")
	assert.Contains(t, out, "pinned to version 3.4.10")

	out = mustRun(t, app, "exit")
	assert.Contains(t, out, "No cluster managed.")
	assert.Empty(t, managed(t, app))
}

func TestCLI_EngineErrorsSurface(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "hadoop")
	mustRun(t, app, "node", "add", "m1", "--ip", "10.0.0.1", "--ram", "4096", "--type", "master")

	_, err := run(t, app, "", "node", "add", "m2", "--ip", "10.0.0.1", "--ram", "4096", "--type", "master")
	require.ErrorIs(t, err, model.ErrConflict)
	assert.EqualError(t, err, `A node with the IP "10.0.0.1" already exists!`)

	_, err = run(t, app, "", "service", "add", "YARN")
	require.ErrorIs(t, err, model.ErrReqNotMet)

	_, err = run(t, app, "", "service", "add", "ZOOKEEPER", "--mode", "turbo")
	assert.ErrorContains(t, err, "--mode")
}

func TestCLI_SingleManagedCluster(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "a")

	_, err := run(t, app, "", "create", "b")
	require.ErrorIs(t, err, model.ErrMustExit)
	_, err = run(t, app, "", "manage", "b")
	require.Error(t, err)

	mustRun(t, app, "exit")
	mustRun(t, app, "create", "b")
	assert.Equal(t, "b", managed(t, app))

	_, err = run(t, app, "", "node", "list", "--cluster", "a")
	require.ErrorIs(t, err, model.ErrMustExit)
}

func TestCLI_ClusterFlagWithoutSession(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "a")
	mustRun(t, app, "exit")

	_, err := run(t, app, "", "node", "list")
	require.ErrorIs(t, err, model.ErrNoContext)

	mustRun(t, app, "node", "add", "m1", "--ip", "10.0.0.1", "--ram", "1024", "--type", "master", "-c", "a")
	assert.Empty(t, managed(t, app))

	out := mustRun(t, app, "node", "list", "-c", "a", "-o", "json")
	var nodes []model.Node
	require.NoError(t, json.Unmarshal([]byte(out), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "m1", nodes[0].Name)
}

func TestCLI_DestructiveCommandsAsk(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "a")
	mustRun(t, app, "node", "add", "m1", "--ip", "10.0.0.1", "--ram", "1024", "--type", "master")

	out, err := run(t, app, "n\n", "node", "rm", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Contains(t, mustRun(t, app, "node", "list"), "m1")

	out, err = run(t, app, "", "node", "rm", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	out, err = run(t, app, "yes\n", "node", "rm", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, `Node "m1" removed`)

	mustRun(t, app, "delete", "a", "--yes")
	assert.Empty(t, managed(t, app))
	ok, err := app.Store.Exists(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCLI_NodeEdit(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "a")
	mustRun(t, app, "node", "add", "m1", "--ip", "10.0.0.1", "--ram", "1024", "--type", "master")

	out := mustRun(t, app, "node", "edit", "m1", "--ram", "2048", "--name", "master1")
	assert.Contains(t, out, `Changed ram of node "m1": 1024 -> 2048`)
	assert.Contains(t, out, `Changed name of node "m1": m1 -> master1`)

	out = mustRun(t, app, "node", "edit", "master1", "--ram", "2048")
	assert.Contains(t, out, `Node "master1" unchanged.`)
}

func TestCLI_ListAndRepair(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "create", "a")
	mustRun(t, app, "exit")
	mustRun(t, app, "create", "b")
	mustRun(t, app, "exit")

	fs := app.Store.(*store.FileStore)
	require.NoError(t, os.Remove(filepath.Join(fs.Home, "b", store.SnapshotFile)))

	out := mustRun(t, app, "list", "-o", "json")
	var clusters []model.ClusterSummary
	require.NoError(t, json.Unmarshal([]byte(out), &clusters))
	require.Len(t, clusters, 2)
	assert.False(t, clusters[0].Broken)
	assert.True(t, clusters[1].Broken)

	out = mustRun(t, app, "list")
	assert.Contains(t, out, "(broken, see repair)")

	out = mustRun(t, app, "repair", "b")
	assert.Contains(t, out, `Cluster "b" repaired.`)
	out = mustRun(t, app, "repair", "a")
	assert.Contains(t, out, "nothing to repair")
}

func TestCLI_ApplyExport(t *testing.T) {
	app := newTestApp(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "zk.yaml")
	require.NoError(t, os.WriteFile(src, []byte(`
name: zk
domain: zk.example.org
nodes:
  - {name: m1, ip: 10.0.0.1, ram: 4096, cpus: 2, types: [master]}
services:
  - {name: ZOOKEEPER}
components:
  - {name: ZOOKEEPER_SERVER, nodes: [m1]}
  - {name: ZOOKEEPER_CLIENT, nodes: [m1]}
`), 0o644))

	out := mustRun(t, app, "apply", "-f", src)
	assert.Contains(t, out, `Cluster "zk": 0 bundles, 1 nodes, 1 services, 2 components and 0 versions applied.`)
	assert.Equal(t, "zk", managed(t, app))

	out = mustRun(t, app, "apply", "-f", src)
	assert.Contains(t, out, "0 nodes, 0 services, 0 components")

	dst := filepath.Join(dir, "out.yaml")
	mustRun(t, app, "export", "-f", dst)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: ZOOKEEPER_SERVER")

	out = mustRun(t, app, "export")
	assert.Contains(t, out, "domain: zk.example.org")
}

func TestCLI_Bundles(t *testing.T) {
	app := newTestApp(t)
	app.Bundles = catalog.MapBundleSource{
		"extra": &catalog.Document{
			Services: []catalog.ServiceDefinition{{
				Name: "SPARK",
				Components: []catalog.ComponentDefinition{{
					Name:      "SPARK_CLIENT",
					Abbr:      "spark",
					HostTypes: []string{"edge"},
					Number:    catalog.Number{Default: -1, HA: -1},
				}},
			}},
		},
	}
	mustRun(t, app, "create", "a")

	_, err := run(t, app, "", "bundle", "add", "extra", "--position", "middle")
	assert.ErrorContains(t, err, "--position")

	mustRun(t, app, "bundle", "add", "extra")
	out := mustRun(t, app, "bundle", "list")
	assert.Contains(t, out, "extra")
	mustRun(t, app, "service", "add", "SPARK")

	_, err = run(t, app, "", "bundle", "rm", "extra", "-y")
	require.ErrorIs(t, err, model.ErrDependency)
}

func TestParsePosition(t *testing.T) {
	for in, want := range map[string]int{"first": 0, "last": -1, "": -1, "2": 2} {
		got, err := parsePosition(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := parsePosition("-3")
	assert.Error(t, err)
}

func TestState_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	s, err := loadState(dir)
	require.NoError(t, err)
	assert.Empty(t, s.ManagedCluster)

	require.NoError(t, saveState(dir, &State{ManagedCluster: "hadoop"}))
	s, err = loadState(dir)
	require.NoError(t, err)
	assert.Equal(t, "hadoop", s.ManagedCluster)
}
