package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/clusterplan/internal/model"
)

// ---------- AddNode ----------

func TestAddNode_Success(t *testing.T) {
	e, saver := testEngine(t)

	err := e.AddNode(context.Background(), NodeSpec{Name: "n1", IP: "10.0.0.1", RAM: 1024, Types: []string{"master"}})
	require.NoError(t, err)

	n, err := e.Node("n1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", n.IP)
	assert.Equal(t, 1, n.CPUs)
	assert.Equal(t, []string{}, n.Components)
	assert.Equal(t, 1, saver.saves)
}

func TestAddNode_DuplicateIP(t *testing.T) {
	e, saver := testEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AddNode(ctx, NodeSpec{Name: "n1", IP: "10.0.0.1", RAM: 1, Types: []string{"master"}}))
	err := e.AddNode(ctx, NodeSpec{Name: "n2", IP: "10.0.0.1", RAM: 1, Types: []string{"worker"}})

	me := assertKind(t, err, model.ErrConflict)
	assert.Equal(t, "IP", me.Property)
	assert.Equal(t, `A node with the IP "10.0.0.1" already exists!`, me.Error())
	assert.Len(t, e.Nodes(), 1)
	assert.Equal(t, 1, saver.saves)
}

func TestAddNode_Rejections(t *testing.T) {
	tests := []struct {
		name string
		spec NodeSpec
		kind error
	}{
		{"duplicate name", master("n1", "10.0.0.9"), model.ErrConflict},
		{"leading digit", master("1node", "10.0.0.9"), model.ErrInvalidName},
		{"dedicated mixed", NodeSpec{Name: "ipa", IP: "10.0.0.9", RAM: 1, Types: []string{"ldap", "master"}}, model.ErrIncompatibleTypes},
		{"bad ip", master("n9", "not-an-ip"), model.ErrInvalid},
		{"no types", NodeSpec{Name: "n9", IP: "10.0.0.9", RAM: 1}, model.ErrInvalid},
		{"no ram", NodeSpec{Name: "n9", IP: "10.0.0.9", Types: []string{"master"}}, model.ErrInvalid},
		{"unknown type", NodeSpec{Name: "n9", IP: "10.0.0.9", RAM: 1, Types: []string{"gpu"}}, model.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := testEngine(t)
			addNodes(t, e, master("n1", "10.0.0.1"))
			before := e.Cluster()

			err := e.AddNode(context.Background(), tt.spec)
			assertKind(t, err, tt.kind)
			assert.Empty(t, cmp.Diff(before, e.Cluster()))
		})
	}
}

func TestAddNode_DedicatedAlone(t *testing.T) {
	e, _ := testEngine(t)

	err := e.AddNode(context.Background(), NodeSpec{Name: "ipa", IP: "10.0.0.5", RAM: 1, Types: []string{"ldap"}})
	require.NoError(t, err)
}

func TestAddNode_UniqueNamesAndIPs(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_ = e.AddNode(ctx, master(fmt.Sprintf("n%d", i%7), fmt.Sprintf("10.0.0.%d", i%5)))
	}

	names := map[string]bool{}
	ips := map[string]bool{}
	for _, n := range e.Nodes() {
		assert.False(t, names[n.Name], "duplicate name %s", n.Name)
		assert.False(t, ips[n.IP], "duplicate ip %s", n.IP)
		names[n.Name] = true
		ips[n.IP] = true
	}
	assert.Len(t, e.Nodes(), 5)
}

// ---------- RemoveNode ----------

func TestRemoveNode_NotFound(t *testing.T) {
	e, saver := testEngine(t)
	addNodes(t, e, master("n1", "10.0.0.1"))
	before := e.Cluster()

	err := e.RemoveNode(context.Background(), "ghost")

	assertKind(t, err, model.ErrNotFound)
	assert.Empty(t, cmp.Diff(before, e.Cluster()))
	assert.Equal(t, 1, saver.saves)
}

func TestRemoveNode_DropsPlacements(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	addNodes(t, e, master("n1", "10.0.0.1"), worker("w1", "10.0.0.2"))
	_, err := e.AddService(ctx, "B", InstallOptions{Auto: true})
	require.NoError(t, err)

	require.NoError(t, e.RemoveNode(ctx, "n1"))

	assert.Equal(t, 1, e.InstalledCount("B_CLIENT"))
	_, err = e.Node("n1")
	assertKind(t, err, model.ErrNotFound)
}

// ---------- EditNode ----------

func ptr[T any](v T) *T { return &v }

func TestEditNode_AppliesChanges(t *testing.T) {
	e, saver := testEngine(t)
	addNodes(t, e, master("n1", "10.0.0.1"))

	changes, err := e.EditNode(context.Background(), "n1", NodeEdit{
		IP:      ptr("10.0.0.2"),
		RAM:     ptr(4096),
		CPUs:    ptr(2),
		NewName: ptr("m1"),
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Change{
		{Field: "ip", Old: "10.0.0.1", New: "10.0.0.2"},
		{Field: "ram", Old: 2048, New: 4096},
		{Field: "name", Old: "n1", New: "m1"},
	}, changes)
	n, err := e.Node("m1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", n.IP)
	assert.Equal(t, 4096, n.RAM)
	assert.Equal(t, 2, saver.saves)
}

func TestEditNode_AllOrNothing(t *testing.T) {
	e, saver := testEngine(t)
	addNodes(t, e, master("n1", "10.0.0.1"), master("n2", "10.0.0.2"))
	before := e.Cluster()

	_, err := e.EditNode(context.Background(), "n1", NodeEdit{
		RAM: ptr(4096),
		IP:  ptr("10.0.0.2"),
	})

	assertKind(t, err, model.ErrConflict)
	assert.Empty(t, cmp.Diff(before, e.Cluster()))
	assert.Equal(t, 2, saver.saves)
}

func TestEditNode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		edit NodeEdit
		kind error
	}{
		{"bad ip", NodeEdit{IP: ptr("x")}, model.ErrInvalid},
		{"zero cpus", NodeEdit{CPUs: ptr(0)}, model.ErrInvalid},
		{"taken name", NodeEdit{NewName: ptr("n2")}, model.ErrConflict},
		{"digit name", NodeEdit{NewName: ptr("9n")}, model.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := testEngine(t)
			addNodes(t, e, master("n1", "10.0.0.1"), master("n2", "10.0.0.2"))

			_, err := e.EditNode(context.Background(), "n1", tt.edit)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestEditNode_NoChange(t *testing.T) {
	e, saver := testEngine(t)
	addNodes(t, e, master("n1", "10.0.0.1"))

	changes, err := e.EditNode(context.Background(), "n1", NodeEdit{IP: ptr("10.0.0.1")})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 1, saver.saves)

	_, err = e.EditNode(context.Background(), "ghost", NodeEdit{})
	assertKind(t, err, model.ErrNotFound)
}
