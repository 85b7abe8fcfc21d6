package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/model"
	"github.com/edvin/clusterplan/internal/platform"
)

// BundlesDir is the directory under Home reserved for bundles.
const BundlesDir = "bundles"

// FileStore keeps one directory per cluster under Home, holding the snapshot
// in <Home>/<name>/cluster.json.
type FileStore struct {
	Home string
}

func NewFileStore(home string) *FileStore {
	return &FileStore{Home: home}
}

func (s *FileStore) dir(name string) string {
	return filepath.Join(s.Home, name)
}

// owns reports whether name maps to a cluster directory directly under Home.
func (s *FileStore) owns(name string) bool {
	return filepath.Base(name) == name && !strings.HasPrefix(name, ".") && !strings.EqualFold(name, BundlesDir)
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	if !s.owns(name) {
		return false, nil
	}
	fi, err := os.Stat(s.dir(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat cluster %s: %w", name, err)
	}
	return fi.IsDir(), nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*model.Cluster, error) {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notExist(name)
	}

	b, err := os.ReadFile(filepath.Join(s.dir(name), SnapshotFile))
	if err != nil {
		return nil, noConfFile(name, err)
	}
	return Decode(name, b)
}

// Save writes the snapshot to a temporary file and renames it over the
// previous one.
func (s *FileStore) Save(_ context.Context, c *model.Cluster) (err error) {
	defer func() { metrics.ObserveSnapshotWrite("file", err) }()

	if !s.owns(c.Name) {
		return fmt.Errorf("cluster name %q cannot be stored under %s", c.Name, s.Home)
	}
	b, err := Encode(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir(c.Name), 0o755); err != nil {
		return fmt.Errorf("create cluster directory: %w", err)
	}

	target := filepath.Join(s.dir(c.Name), SnapshotFile)
	tmp := platform.TempName(target)
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write snapshot %s: %w", c.Name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot %s: %w", c.Name, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return notExist(name)
	}
	if err := os.RemoveAll(s.dir(name)); err != nil {
		return fmt.Errorf("delete cluster %s: %w", name, err)
	}
	return nil
}

// List returns the cluster directories under Home in name order. Directories
// without a snapshot are included so that they can be repaired.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Home)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() && e.Name() != BundlesDir && e.Name()[0] != '.' {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
