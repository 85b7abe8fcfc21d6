package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

const testCatalog = `
host_types: [master, worker, edge, ldap]
dedicated_host_types: [ldap]
services:
  - name: B
    components:
      - name: B_SERVER
        abbr: bs
        host_types: [master]
        number: {default: 1, ha: 1}
      - name: B_CLIENT
        abbr: bc
        host_types: [master, worker]
        number: {default: -1, ha: -1}
    requirements: {default: [], ha: []}
    auto_install: [B_CLIENT]
    versions: ["1.0.0", "1.2.0", "2.0.0"]
    default_version: "1.2.0"
  - name: A
    components:
      - name: A_SERVER
        abbr: as
        host_types: [master]
        number: {default: 1, ha: 1}
    requirements: {default: [B], ha: [B]}
  - name: S
    components:
      - name: X
        abbr: x
        host_types: [master, worker]
        number: {default: 1, ha: 3}
      - name: Y
        abbr: y
        host_types: [master, worker]
        number: {default: 2, ha: 1}
    requirements: {default: [], ha: []}
  - name: H
    components:
      - name: H_X
        abbr: hx
        host_types: [master, worker]
        number: {default: 1, ha: 3}
      - name: H_Y
        abbr: hy
        host_types: [master, worker]
        number: {default: 1, ha: 1}
    requirements: {default: [], ha: []}
  - name: M
    components:
      - name: M_MASTER
        abbr: mm
        host_types: [master]
        number: {default: 1, ha: 2}
      - name: M_CLIENT
        abbr: mc
        host_types: [master, worker]
        number: {default: -1, ha: -1}
      - name: M_WORKER
        abbr: mw
        host_types: [worker]
        number: {default: 2, ha: 2}
    requirements: {default: [], ha: []}
    auto_install: [M_MASTER, M_CLIENT, M_WORKER]
  - name: C
    components:
      - name: C_MAIN
        abbr: cm
        host_types: [master]
        number: {default: 1, ha: 2}
        auto_install: [C_SIDE]
      - name: C_SIDE
        abbr: cs
        host_types: [master]
        number: {default: 0, ha: 2}
    requirements: {default: [], ha: []}
  - name: D
    components:
      - name: D_SERVER
        abbr: ds
        host_types: [master]
        number: {default: 1, ha: 1}
    requirements: {default: [A], ha: [A]}
  - name: E
    components:
      - name: E_SERVER
        abbr: es
        host_types: [master]
        number: {default: 1, ha: 1}
    requirements: {default: [F], ha: [F]}
  - name: F
    components:
      - name: F_SERVER
        abbr: fs
        host_types: [master]
        number: {default: 1, ha: 1}
    requirements: {default: [E], ha: [E]}
  - name: K
    components:
      - name: K_SERVER
        abbr: ks
        host_types: [master]
        number: {default: 1, ha: 1}
    requirements: {default: [E], ha: [E]}
`

// memSaver keeps the last saved snapshot in memory.
type memSaver struct {
	saves int
	last  *model.Cluster
}

func (s *memSaver) Save(_ context.Context, c *model.Cluster) error {
	s.saves++
	s.last = c.Clone()
	return nil
}

type failingSaver struct{}

func (failingSaver) Save(context.Context, *model.Cluster) error {
	return errors.New("disk full")
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T, opts ...Option) (*Engine, *memSaver) {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalog), "test")
	require.NoError(t, err)

	saver := &memSaver{}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e, err := New(cat, model.NewCluster("id-1", "c1"), saver, opts...)
	require.NoError(t, err)
	return e, saver
}

func addNodes(t *testing.T, e *Engine, specs ...NodeSpec) {
	t.Helper()
	for _, s := range specs {
		require.NoError(t, e.AddNode(context.Background(), s))
	}
}

func master(name, ip string) NodeSpec {
	return NodeSpec{Name: name, IP: ip, RAM: 2048, CPUs: 2, Types: []string{"master"}}
}

func worker(name, ip string) NodeSpec {
	return NodeSpec{Name: name, IP: ip, RAM: 2048, CPUs: 2, Types: []string{"worker"}}
}

func assertKind(t *testing.T, err error, kind error) *model.Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var me *model.Error
	require.True(t, errors.As(err, &me))
	return me
}

func TestNew(t *testing.T) {
	cat := catalog.Default()

	_, err := New(nil, model.NewCluster("id", "c"), &memSaver{})
	require.Error(t, err)

	_, err = New(cat, nil, &memSaver{})
	require.Error(t, err)

	e, err := New(cat, model.NewCluster("id", "c"), &memSaver{})
	require.NoError(t, err)
	assert.Equal(t, "c", e.Name())
	assert.Same(t, cat, e.Catalog())
}

func TestNew_UnknownBundle(t *testing.T) {
	c := model.NewCluster("id", "c")
	c.Bundles = []string{"missing"}

	_, err := New(catalog.Default(), c, &memSaver{}, WithBundleSource(catalog.MapBundleSource{}))
	assertKind(t, err, model.ErrNotFound)
}

func TestEngine_CommitSetsUpdatedAt(t *testing.T) {
	e, saver := testEngine(t)

	addNodes(t, e, master("n1", "10.0.0.1"))

	assert.Equal(t, 1, saver.saves)
	assert.Equal(t, testNow, saver.last.UpdatedAt)
	assert.Equal(t, testNow, e.Cluster().UpdatedAt)
}

func TestEngine_PersistenceFailureKeepsState(t *testing.T) {
	cat, err := catalog.Load(strings.NewReader(testCatalog), "test")
	require.NoError(t, err)
	e, err := New(cat, model.NewCluster("id", "c"), failingSaver{})
	require.NoError(t, err)
	before := e.Cluster()

	err = e.AddNode(context.Background(), master("n1", "10.0.0.1"))
	me := assertKind(t, err, model.ErrPersistence)
	assert.Contains(t, me.Error(), "disk full")
	assert.Empty(t, cmp.Diff(before, e.Cluster()))
}

func TestEngine_ClusterReturnsCopy(t *testing.T) {
	e, _ := testEngine(t)
	addNodes(t, e, master("n1", "10.0.0.1"))

	c := e.Cluster()
	c.Nodes[0].Name = "changed"

	_, err := e.Node("n1")
	require.NoError(t, err)
}

func TestEngine_View(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	addNodes(t, e, master("n1", "10.0.0.1"), worker("w1", "10.0.0.2"))

	_, err := e.AddService(ctx, "B", InstallOptions{Auto: true})
	require.NoError(t, err)

	want := model.PlacementView{
		"B": {
			"B_SERVER": {},
			"B_CLIENT": {"n1", "w1"},
		},
	}
	assert.Empty(t, cmp.Diff(want, e.View()))
	assert.Equal(t, []string{"n1", "w1"}, e.View().Hosts("B", "B_CLIENT"))
}
