// Package store persists cluster snapshots. A snapshot is the complete
// topology of one cluster, written in a single operation so that a failed
// write never leaves a partial snapshot behind.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/edvin/clusterplan/internal/model"
)

// SnapshotFile is the name of the snapshot document of a cluster.
const SnapshotFile = "cluster.json"

// Store reads and writes cluster snapshots.
//
// Load fails with model.ErrNotExist when the cluster is unknown and with
// model.ErrNoConfFile when the cluster exists but its snapshot is missing or
// unreadable.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Load(ctx context.Context, name string) (*model.Cluster, error)
	Save(ctx context.Context, c *model.Cluster) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// Encode renders the snapshot document of a cluster.
func Encode(c *model.Cluster) ([]byte, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cluster %s: %w", c.Name, err)
	}
	return append(b, '\n'), nil
}

// Decode parses a snapshot document. Any parse problem, including trailing
// garbage, is reported as model.ErrNoConfFile.
func Decode(name string, b []byte) (*model.Cluster, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var c model.Cluster
	if err := dec.Decode(&c); err != nil {
		return nil, noConfFile(name, err)
	}
	if dec.More() {
		return nil, noConfFile(name, fmt.Errorf("trailing data after snapshot"))
	}
	if c.Name == "" {
		return nil, noConfFile(name, fmt.Errorf("snapshot has no cluster name"))
	}
	normalize(&c)
	return &c, nil
}

// normalize replaces nil collections so that snapshots written by hand or by
// older versions compare equal to ones written by Encode.
func normalize(c *model.Cluster) {
	if c.Bundles == nil {
		c.Bundles = []string{}
	}
	if c.Services == nil {
		c.Services = []string{}
	}
	if c.Nodes == nil {
		c.Nodes = []model.Node{}
	}
	for i := range c.Nodes {
		if c.Nodes[i].Components == nil {
			c.Nodes[i].Components = []string{}
		}
	}
	if len(c.Versions) == 0 {
		c.Versions = nil
	}
	if c.Location == "" {
		c.Location = model.LocationLocal
	}
}

func notExist(name string) error {
	return &model.Error{Kind: model.ErrNotExist, Object: "cluster", Name: name}
}

func noConfFile(name string, err error) error {
	return &model.Error{Kind: model.ErrNoConfFile, Object: "cluster", Name: name, Err: err}
}
