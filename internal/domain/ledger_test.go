package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
)

func TestSignedAmountEnforcesSignConventions(t *testing.T) {
	require.Equal(t, int64(-120), domain.SignedAmount(domain.EntryHold, 120))
	require.Equal(t, int64(-120), domain.SignedAmount(domain.EntryHold, -120))
	require.Equal(t, int64(-60), domain.SignedAmount(domain.EntryUsage, 60))
	require.Equal(t, int64(60), domain.SignedAmount(domain.EntryHoldRelease, -60))
	require.Equal(t, int64(480), domain.SignedAmount(domain.EntryAccrual, 480))
	require.Equal(t, int64(-30), domain.SignedAmount(domain.EntryAdjustment, -30))
}

func TestRecomputeBalanceMatchesSnapshotInvariantI2(t *testing.T) {
	now := time.Now().UTC()
	company, employee, policy := domain.NewCompanyID(), domain.NewEmployeeID(), domain.NewPolicyID()

	entries := []domain.LedgerEntry{
		{EntryType: domain.EntryAccrual, AmountMinutes: domain.SignedAmount(domain.EntryAccrual, 480)},
		{EntryType: domain.EntryAccrual, AmountMinutes: domain.SignedAmount(domain.EntryAccrual, 480)},
		{EntryType: domain.EntryHold, AmountMinutes: domain.SignedAmount(domain.EntryHold, 240)},
		{EntryType: domain.EntryHoldRelease, AmountMinutes: domain.SignedAmount(domain.EntryHoldRelease, 240)},
		{EntryType: domain.EntryUsage, AmountMinutes: domain.SignedAmount(domain.EntryUsage, 240)},
	}

	snap := domain.NewSnapshotFromLedger(company, employee, policy, entries, now)

	require.Equal(t, int64(960), snap.AccruedMinutes)
	require.Equal(t, int64(240), snap.UsedMinutes)
	require.Equal(t, int64(0), snap.HeldMinutes)
	require.Equal(t, int64(720), snap.AvailableMinutes)
	require.True(t, snap.ConsistentWithLedger(entries))
}

func TestConsistentWithLedgerDetectsDrift(t *testing.T) {
	snap := domain.BalanceSnapshot{AccruedMinutes: 480, UsedMinutes: 0, HeldMinutes: 0}
	entries := []domain.LedgerEntry{
		{EntryType: domain.EntryAccrual, AmountMinutes: 480},
		{EntryType: domain.EntryUsage, AmountMinutes: -60},
	}
	require.False(t, snap.ConsistentWithLedger(entries))
}

func TestBalanceSnapshotRecomputeEnforcesI1(t *testing.T) {
	snap := domain.BalanceSnapshot{AccruedMinutes: 1000, UsedMinutes: 200, HeldMinutes: 100}
	snap.Recompute()
	require.Equal(t, int64(700), snap.AvailableMinutes)
}
