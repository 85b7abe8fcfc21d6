package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/clusterplan/internal/model"
)

func TestCheckRequirements(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	req, err := e.CheckRequirements("A", model.ModeDefault)
	require.NoError(t, err)
	assert.False(t, req.Satisfied())
	assert.Equal(t, []string{"B"}, req.MissingServices)
	assert.Equal(t, map[string]int{"B_SERVER": 1, "B_CLIENT": 1}, req.MissingComponents)

	addNodes(t, e, master("n1", "10.0.0.1"))
	installB(t, e)

	req, err = e.CheckRequirements("A", model.ModeHA)
	require.NoError(t, err)
	assert.True(t, req.Satisfied())

	_, err = e.CheckRequirements("NOPE", model.ModeDefault)
	assertKind(t, err, model.ErrNotFound)

	_, err = e.AddService(ctx, "A", InstallOptions{})
	require.NoError(t, err)
}

func TestCheckRequirements_EitherModeSatisfies(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	addNodes(t, e, master("n1", "10.0.0.1"), master("n2", "10.0.0.2"))
	installB(t, e)

	// B_SERVER is satisfied in both modes; dropping the clients from one node
	// keeps the -1 requirement met.
	require.NoError(t, e.RemoveComponent(ctx, "B_CLIENT", "n2"))

	req, err := e.CheckRequirements("A", model.ModeDefault)
	require.NoError(t, err)
	assert.True(t, req.Satisfied())
}

func TestCountRequired(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	addNodes(t, e, master("n1", "10.0.0.1"))
	_, err := e.AddService(ctx, "S", InstallOptions{})
	require.NoError(t, err)
	_, err = e.AddComponent(ctx, "Y", "n1", nil)
	require.NoError(t, err)

	got, err := e.CountRequired("S", model.ModeDefault)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"X": 1, "Y": 1}, got)

	got, err = e.CountRequired("S", model.ModeHA)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"X": 3}, got)
}

func TestIsHA_UnknownService(t *testing.T) {
	e, _ := testEngine(t)
	assert.False(t, e.IsHA("NOPE"))
}

func TestServiceStatus(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()
	addNodes(t, e, master("n1", "10.0.0.1"))

	_, err := e.ServiceStatus("B")
	assertKind(t, err, model.ErrNotInstalled)
	_, err = e.ServiceStatus("NOPE")
	assertKind(t, err, model.ErrNotFound)

	_, err = e.AddService(ctx, "B", InstallOptions{Auto: true})
	require.NoError(t, err)
	missing, err := e.ServiceStatus("B")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"B_SERVER": 1}, missing)

	_, err = e.AutoAssign(ctx, "B", model.ModeDefault)
	require.NoError(t, err)
	missing, err = e.ServiceStatus("B")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
