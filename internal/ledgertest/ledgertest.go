/*
Package ledgertest provides the invariant-checking helpers every service
package's tests share, grounded on the teacher's generic/engine_test.go and
generic/spec_test.go property-style assertions (approxEqual, balance())
translated from the teacher's decimal Amount/Balance types to this system's
integer-minutes domain.LedgerEntry/domain.BalanceSnapshot.
*/
package ledgertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

// AssertSnapshotConsistent checks invariant I2: recomputing (accrued, used,
// held) from the full ledger history for (company, employee, policy) matches
// the stored BalanceSnapshot exactly.
func AssertSnapshotConsistent(t *testing.T, ctx context.Context, s store.Store, company domain.CompanyID, employee domain.EmployeeID, policy domain.PolicyID) {
	t.Helper()

	var snap *domain.BalanceSnapshot
	var entries []domain.LedgerEntry
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		snap, err = tx.Snapshots().Get(ctx, company, employee, policy)
		if err != nil {
			return err
		}
		entries, err = tx.Ledger().EntriesFor(ctx, company, employee, policy)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, snap, "expected a materialized snapshot")

	accrued, used, held := domain.RecomputeBalance(entries)
	require.Equal(t, accrued, snap.AccruedMinutes, "accrued minutes diverged from ledger replay")
	require.Equal(t, used, snap.UsedMinutes, "used minutes diverged from ledger replay")
	require.Equal(t, held, snap.HeldMinutes, "held minutes diverged from ledger replay")
	require.Equal(t, accrued-used-held, snap.AvailableMinutes, "available minutes violates I1")
}

// AssertIdempotent re-runs fn a second time and requires the ledger to gain
// no new entries for sourceID - the at-most-once posting property every
// webhook and replay-safe write path must hold.
func AssertIdempotent(t *testing.T, ctx context.Context, s store.Store, company domain.CompanyID, sourceID string, fn func() error) {
	t.Helper()

	require.NoError(t, fn())

	var before []domain.LedgerEntry
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		before, err = tx.Ledger().EntriesBySource(ctx, company, sourceID)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, fn())

	var after []domain.LedgerEntry
	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		after, err = tx.Ledger().EntriesBySource(ctx, company, sourceID)
		return err
	})
	require.NoError(t, err)

	require.Len(t, after, len(before), "replay posted additional ledger entries for the same source")
}
