/*
Package snapshotservice implements the balance snapshot helper (spec §4.5):
get-or-create-for-update against the row lock, and read paths for reporting.

Every write path in the system (request workflow, admin adjustment, the
three worker engines) calls GetForUpdate inside its own transaction, applies
its deltas, and calls Save before committing - this package does not open
its own transactions for the write path, it only wraps the store calls with
the Version-increment discipline (every Apply bumps Version by one).
*/
package snapshotservice

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

// GetForUpdate takes the row lock on the (company, employee, policy)
// snapshot, materializing it from the ledger on first access.
func GetForUpdate(ctx context.Context, tx store.Tx, companyID domain.CompanyID, employeeID domain.EmployeeID, policyID domain.PolicyID) (*domain.BalanceSnapshot, error) {
	return tx.Snapshots().GetForUpdate(ctx, companyID, employeeID, policyID)
}

// Apply adds the given deltas to a locked snapshot, recomputes I1, bumps the
// optimistic Version counter, and persists it - callers pass zero for any
// delta that doesn't apply to the posting they're making.
func Apply(ctx context.Context, tx store.Tx, snap *domain.BalanceSnapshot, deltaAccrued, deltaUsed, deltaHeld int64, now time.Time) error {
	snap.AccruedMinutes += deltaAccrued
	snap.UsedMinutes += deltaUsed
	snap.HeldMinutes += deltaHeld
	snap.Recompute()
	snap.UpdatedAt = now
	snap.Version++
	return tx.Snapshots().Save(ctx, *snap)
}

type Service struct {
	store store.Store
}

func New(s store.Store) *Service { return &Service{store: s} }

func (s *Service) Get(ctx context.Context, companyID domain.CompanyID, employeeID domain.EmployeeID, policyID domain.PolicyID) (*domain.BalanceSnapshot, error) {
	var out *domain.BalanceSnapshot
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Snapshots().GetForUpdate(ctx, companyID, employeeID, policyID)
		out = snap
		return err
	})
	return out, err
}

func (s *Service) ListForEmployee(ctx context.Context, companyID domain.CompanyID, employeeID domain.EmployeeID) ([]domain.BalanceSnapshot, error) {
	var out []domain.BalanceSnapshot
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Snapshots().ListForEmployee(ctx, companyID, employeeID)
		return err
	})
	return out, err
}
