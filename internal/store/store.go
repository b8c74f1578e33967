/*
Package store defines the persistence interfaces the core depends on, and
the transaction discipline from spec §5: every mutating operation runs
inside one transaction, takes a row lock on the affected BalanceSnapshot,
posts ledger entries under a nested savepoint, updates the snapshot, appends
an audit record, then commits.

Two implementations exist:
  - memstore: an in-memory, mutex-guarded implementation used by tests and
    the dev seed script, grounded on the teacher's generic/store/memory.go.
  - postgres: a pgx-backed implementation using real row locks and real
    SAVEPOINTs, grounded on the teacher's store/sqlite/sqlite.go migration
    and query style, adapted from SQLite/database-sql to Postgres/pgx
    because the spec's concurrency model needs primitives SQLite doesn't
    give a single-writer WAL database.
*/
package store

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/domain"
)

// Store opens transactions. RunInTx must roll back automatically if fn
// returns an error or panics, and commit otherwise.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx bundles the per-table repositories reachable within one transaction.
type Tx interface {
	Policies() PolicyStore
	Assignments() AssignmentStore
	Requests() RequestStore
	Ledger() LedgerStore
	Snapshots() SnapshotStore
	Holidays() HolidayStore
	Audit() AuditStore
}

type PolicyStore interface {
	Create(ctx context.Context, p domain.Policy, v domain.PolicyVersion) error
	GetByID(ctx context.Context, company domain.CompanyID, id domain.PolicyID) (*domain.Policy, error)
	GetByKey(ctx context.Context, company domain.CompanyID, key string) (*domain.Policy, error)
	ListByCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.Policy, error)

	// EndDateAndInsertVersion atomically ends the current version (setting
	// its EffectiveTo) and inserts next as the new current version.
	EndDateAndInsertVersion(ctx context.Context, policyID domain.PolicyID, currentVersionID domain.PolicyVersionID, newEffectiveTo domain.CivilDate, next domain.PolicyVersion) error
	CurrentVersion(ctx context.Context, policyID domain.PolicyID) (*domain.PolicyVersion, error)
	VersionEffectiveOn(ctx context.Context, policyID domain.PolicyID, d domain.CivilDate) (*domain.PolicyVersion, error)
	VersionChain(ctx context.Context, policyID domain.PolicyID) ([]domain.PolicyVersion, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, a domain.Assignment) error
	Get(ctx context.Context, company domain.CompanyID, id domain.AssignmentID) (*domain.Assignment, error)
	EndDate(ctx context.Context, id domain.AssignmentID, effectiveTo domain.CivilDate) error
	ActiveOverlapping(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, from domain.CivilDate, to *domain.CivilDate) ([]domain.Assignment, error)
	ByPolicy(ctx context.Context, company domain.CompanyID, policy domain.PolicyID) ([]domain.Assignment, error)
	ByEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.Assignment, error)
	ActiveOn(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, d domain.CivilDate) (*domain.Assignment, error)
	// AllActiveOn lists every assignment active on d across the whole
	// company, used by the accrual/carryover/expiration engines' daily scan.
	AllActiveOn(ctx context.Context, company *domain.CompanyID, d domain.CivilDate) ([]domain.Assignment, error)
}

type RequestFilter struct {
	CompanyID  domain.CompanyID
	EmployeeID *domain.EmployeeID
	PolicyID   *domain.PolicyID
	Status     *domain.RequestStatus
	Offset     int
	Limit      int
}

type RequestStore interface {
	Create(ctx context.Context, r domain.Request) (*domain.Request, bool, error) // bool: false if an existing row with the same idempotency key was returned instead
	Get(ctx context.Context, company domain.CompanyID, id domain.RequestID) (*domain.Request, error)
	UpdateStatus(ctx context.Context, r domain.Request) error
	OverlappingActive(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID, start, end time.Time) ([]domain.Request, error)
	List(ctx context.Context, f RequestFilter) ([]domain.Request, error)
}

// LedgerStore is the append-only poster. Post must post under a nested
// savepoint: on a (source_type, source_id, entry_type) collision, it rolls
// back only the savepoint and returns posted=false, leaving the outer
// transaction free to continue (spec §4.6).
type LedgerStore interface {
	Post(ctx context.Context, e domain.LedgerEntry) (posted bool, err error)
	FindBySource(ctx context.Context, company domain.CompanyID, sourceType domain.SourceType, sourceID string, entryType domain.EntryType) (*domain.LedgerEntry, error)
	EntriesFor(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) ([]domain.LedgerEntry, error)
	EntriesBySource(ctx context.Context, company domain.CompanyID, sourceID string) ([]domain.LedgerEntry, error)

	LedgerFilter
}

type LedgerFilter interface {
	List(ctx context.Context, f LedgerListFilter) ([]domain.LedgerEntry, error)
}

type LedgerListFilter struct {
	CompanyID  domain.CompanyID
	EmployeeID *domain.EmployeeID
	PolicyID   *domain.PolicyID
	From, To   *time.Time
	Offset, Limit int
}

// SnapshotStore's GetForUpdate must take a row-level write lock (SELECT ...
// FOR UPDATE in postgres) held for the remainder of the caller's
// transaction; if no row exists it materializes one from the ledger before
// returning (spec §4.5).
type SnapshotStore interface {
	GetForUpdate(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error)
	Save(ctx context.Context, s domain.BalanceSnapshot) error
	Get(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) (*domain.BalanceSnapshot, error)
	ListForEmployee(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) ([]domain.BalanceSnapshot, error)
	ListForCompany(ctx context.Context, company domain.CompanyID, offset, limit int) ([]domain.BalanceSnapshot, error)
}

type HolidayStore interface {
	Create(ctx context.Context, h domain.CompanyHoliday) error
	Delete(ctx context.Context, company domain.CompanyID, id domain.HolidayID) error
	List(ctx context.Context, company domain.CompanyID) ([]domain.CompanyHoliday, error)
	HolidaysBetween(companyID domain.CompanyID, from, to domain.CivilDate) (map[domain.CivilDate]bool, error)
}

type AuditFilter struct {
	CompanyID  domain.CompanyID
	EntityType *string
	Action     *domain.AuditAction
	ActorID    *domain.EmployeeID
	From, To   *time.Time
	Offset, Limit int
}

type AuditStore interface {
	Append(ctx context.Context, a domain.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]domain.AuditLog, error)
}
