package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/model"
)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps one row per cluster in the clusters table. A NULL
// snapshot marks a cluster whose configuration was lost.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clusters WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cluster %s: %w", name, err)
	}
	return exists, nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) (*model.Cluster, error) {
	var snapshot []byte
	err := s.db.QueryRow(ctx,
		`SELECT snapshot FROM clusters WHERE name = $1`, name,
	).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notExist(name)
		}
		return nil, fmt.Errorf("load cluster %s: %w", name, err)
	}
	if snapshot == nil {
		return nil, noConfFile(name, fmt.Errorf("snapshot is empty"))
	}
	return Decode(name, snapshot)
}

// Save upserts the snapshot in a single statement.
func (s *PostgresStore) Save(ctx context.Context, c *model.Cluster) (err error) {
	defer func() { metrics.ObserveSnapshotWrite("postgres", err) }()

	b, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO clusters (name, snapshot, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		c.Name, b,
	)
	if err != nil {
		return fmt.Errorf("save cluster %s: %w", c.Name, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM clusters WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete cluster %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return notExist(name)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM clusters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cluster name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return names, nil
}
