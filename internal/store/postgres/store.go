/*
Package postgres is the pgx-backed Store (spec §5): every mutation runs
inside one pgx.Tx at the default READ COMMITTED isolation, takes a row lock
on the affected BalanceSnapshot with SELECT ... FOR UPDATE, posts ledger
rows under a real SAVEPOINT so a (source_type, source_id, entry_type)
collision aborts only the savepoint, and commits once the audit row lands.

Grounded on the teacher's store/sqlite/sqlite.go (same four-repository
split: policy/assignment/ledger/snapshot, here extended with request,
holiday and audit), translated from database/sql+go-sqlite3 to pgx/v5 and
pgxpool because the spec's row-lock and savepoint requirements need
primitives SQLite's single-writer WAL mode can't give: a real FOR UPDATE
row lock and nested SAVEPOINTs, not an RWMutex held in the process.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// RunInTx opens one pgx.Tx at READ COMMITTED and commits it iff fn returns
// nil; any error or panic from fn rolls the whole transaction back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperr.Internal("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = pgxTx.Rollback(ctx)
		}
	}()

	tx := &pgTx{conn: pgxTx}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return apperr.Internal("commit transaction", err)
	}
	committed = true
	return nil
}

// pgTx adapts a pgx.Tx to store.Tx, handing out one repo struct per table.
type pgTx struct {
	conn pgx.Tx
}

func (t *pgTx) Policies() store.PolicyStore       { return policyRepo{t.conn} }
func (t *pgTx) Assignments() store.AssignmentStore { return assignmentRepo{t.conn} }
func (t *pgTx) Requests() store.RequestStore       { return requestRepo{t.conn} }
func (t *pgTx) Ledger() store.LedgerStore          { return ledgerRepo{t.conn} }
func (t *pgTx) Snapshots() store.SnapshotStore     { return snapshotRepo{t.conn} }
func (t *pgTx) Holidays() store.HolidayStore       { return holidayRepo{t.conn} }
func (t *pgTx) Audit() store.AuditStore            { return auditRepo{t.conn} }

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505) - the signal every idempotent-insert path in this
// package checks for instead of pre-querying existence, avoiding a
// check-then-act race under concurrent replay.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
