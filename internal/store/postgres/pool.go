// Package postgres implements the durable-store capability-set interfaces
// (C2) with hand-written pgx SQL. The teacher's own storage layer is a thin
// wrapper over sqlc-generated code (internal/storage/db); that generated
// package is not present anywhere in the retrieval pack, so this repository
// layer is written by hand against the same jackc/pgx/v5 driver the teacher
// uses, following the query shapes seen in the teacher's mailer/queue.go
// (pool.Exec/QueryRow with context).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a connection pool and verifies connectivity, grounded on
// the teacher's internal/storage/storage.go NewPostgres.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return pool, nil
}
