package main

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dayledger/pto/internal/store/postgres"
)

// applySchema runs the bundled DDL over its own short-lived connection so it
// never competes with the pool's transaction-scoped connections.
func applySchema(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, postgres.Schema)
	return err
}
