package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/ledgertest"
	"github.com/dayledger/pto/internal/store"
	"github.com/dayledger/pto/internal/store/memstore"
)

func TestLedgerPostIsIdempotentOnSourceTriple(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	company, employee, policy := domain.NewCompanyID(), domain.NewEmployeeID(), domain.NewPolicyID()

	post := func() error {
		return db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Ledger().Post(ctx, domain.LedgerEntry{
				ID: domain.NewLedgerEntryID(), CompanyID: company, EmployeeID: employee, PolicyID: policy,
				EntryType: domain.EntryAccrual, AmountMinutes: 480, EffectiveAt: time.Now().UTC(),
				SourceType: domain.SourcePayroll, SourceID: "payroll-run-42", CreatedAt: time.Now().UTC(),
			})
			return err
		})
	}

	ledgertest.AssertIdempotent(t, ctx, db, company, "payroll-run-42", func() error { return post() })
}

func TestSnapshotGetForUpdateMaterializesFromLedger(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	company, employee, policy := domain.NewCompanyID(), domain.NewEmployeeID(), domain.NewPolicyID()

	err := db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Ledger().Post(ctx, domain.LedgerEntry{
			ID: domain.NewLedgerEntryID(), CompanyID: company, EmployeeID: employee, PolicyID: policy,
			EntryType: domain.EntryAccrual, AmountMinutes: 960, EffectiveAt: time.Now().UTC(),
			SourceType: domain.SourceSystem, SourceID: "accrual-1", CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		snap, err := tx.Snapshots().GetForUpdate(ctx, company, employee, policy)
		if err != nil {
			return err
		}
		require.Equal(t, int64(960), snap.AccruedMinutes)
		require.Equal(t, int64(960), snap.AvailableMinutes)
		return tx.Snapshots().Save(ctx, *snap)
	})
	require.NoError(t, err)

	ledgertest.AssertSnapshotConsistent(t, ctx, db, company, employee, policy)
}

func TestAssignmentOverlapCheckSeesCreatedAssignment(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	company, employee, policy, actor := domain.NewCompanyID(), domain.NewEmployeeID(), domain.NewPolicyID(), domain.NewEmployeeID()
	from := domain.NewCivilDate(2025, time.January, 1)

	err := db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Assignments().Create(ctx, domain.Assignment{
			ID: domain.NewAssignmentID(), CompanyID: company, EmployeeID: employee, PolicyID: policy,
			EffectiveFrom: from, CreatedBy: actor, CreatedAt: from,
		})
	})
	require.NoError(t, err)

	err = db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		overlapping, err := tx.Assignments().ActiveOverlapping(ctx, company, employee, policy, from, nil)
		if err != nil {
			return err
		}
		require.Len(t, overlapping, 1, "the freshly created assignment must be visible to the overlap check")
		return nil
	})
	require.NoError(t, err)
}
