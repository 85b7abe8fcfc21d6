// Package cli implements the clusterctl commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
	"github.com/edvin/clusterplan/internal/session"
	"github.com/edvin/clusterplan/internal/store"
)

// App is shared by every command of one invocation.
type App struct {
	Store   store.Store
	Catalog *catalog.Catalog
	Bundles catalog.BundleSource
	Logger  zerolog.Logger
	// StateDir holds the file remembering the managed cluster.
	StateDir string

	cluster string
	manager *session.Manager
}

// restore opens the manager and re-enters the cluster managed by the previous
// invocation. A managed cluster that can no longer be loaded is dropped.
func (a *App) restore(ctx context.Context) error {
	a.manager = session.NewManager(a.Store, a.Catalog,
		session.WithBundleSource(a.Bundles),
		session.WithLogger(a.Logger),
	)

	state, err := loadState(a.StateDir)
	if err != nil {
		return err
	}
	if state.ManagedCluster == "" {
		return nil
	}
	if _, err := a.manager.Manage(ctx, state.ManagedCluster); err != nil {
		a.Logger.Warn().Err(err).Str("cluster", state.ManagedCluster).Msg("managed cluster dropped")
	}
	return nil
}

// persist remembers the managed cluster for the next invocation.
func (a *App) persist() error {
	state := &State{}
	if e := a.manager.Active(); e != nil {
		state.ManagedCluster = e.Name()
	}
	return saveState(a.StateDir, state)
}

// use runs fn against the cluster selected by --cluster or the managed one.
func (a *App) use(ctx context.Context, fn func(*core.Engine) error) error {
	return a.manager.Use(ctx, a.cluster, fn)
}

// confirm asks before a destructive change unless --yes was given.
func confirm(cmd *cobra.Command, yes bool, format string, args ...any) bool {
	if yes {
		return true
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, format+" [y/N]: ", args...)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	fmt.Fprintln(out, "Aborted.")
	return false
}

func parseMode(s string) (model.Mode, error) {
	m, err := model.ParseMode(s)
	if err != nil {
		return m, fmt.Errorf("--mode: %w", err)
	}
	return m, nil
}
