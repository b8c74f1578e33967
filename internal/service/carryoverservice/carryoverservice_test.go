package carryoverservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/ledgertest"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/carryoverservice"
	"github.com/dayledger/pto/internal/service/ledgerservice"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
	"github.com/dayledger/pto/internal/store/memstore"
)

func TestRunIsNoOpExceptOnJanuaryFirst(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	aw := audit.New()
	svc := carryoverservice.New(db, aw)

	res, err := svc.Run(ctx, domain.NewCivilDate(2025, time.June, 15), nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
}

func TestRunCapsCarryoverAndExpiresExcess(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	aw := audit.New()
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()

	rate := int64(1)
	method := domain.AccrualTime
	cap := int64(100)
	policy, _, err := policyservice.New(db, aw).Create(ctx, policyservice.CreateInput{
		CompanyID: company, Key: "pto-capped", Category: "PTO", Type: domain.PolicyAccrual,
		AccrualMethod: &method,
		Settings: domain.Settings{
			Unit: "MINUTES", AccrualFrequency: domain.FrequencyDaily, AccrualTiming: domain.TimingEndOfPeriod,
			RateMinutesPerDay: &rate,
			Carryover:         domain.CarryoverRule{Enabled: true, CapMinutes: &cap},
		},
		EffectiveFrom: domain.NewCivilDate(2024, time.January, 1),
		ActorID:       emp,
	})
	require.NoError(t, err)

	_, err = assignmentservice.New(db, aw).Create(ctx, assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policy.ID,
		EffectiveFrom: domain.NewCivilDate(2024, time.January, 1), ActorID: emp,
	})
	require.NoError(t, err)

	require.NoError(t, db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		version, err := tx.Policies().CurrentVersion(ctx, policy.ID)
		require.NoError(t, err)
		snap, err := snapshotservice.GetForUpdate(ctx, tx, company, emp, policy.ID)
		require.NoError(t, err)
		poster := ledgerservice.New()
		now := domain.NewCivilDate(2024, time.December, 31).AtUTCMidnight()
		posted, err := poster.Post(ctx, tx, ledgerservice.PostInput{
			CompanyID: company, EmployeeID: emp, PolicyID: policy.ID, PolicyVersionID: version.ID,
			EntryType: domain.EntryAccrual, Magnitude: 400, EffectiveAt: now,
			SourceType: domain.SourceSystem, SourceID: "seed-accrual",
		}, now)
		require.NoError(t, err)
		require.True(t, posted)
		return snapshotservice.Apply(ctx, tx, snap, 400, 0, 0, now)
	}))

	svc := carryoverservice.New(db, aw)
	res, err := svc.Run(ctx, domain.NewCivilDate(2025, time.January, 1), &company)
	require.NoError(t, err)
	require.Equal(t, 1, res.Carried)

	ledgertest.AssertSnapshotConsistent(t, ctx, db, company, emp, policy.ID)

	var snap *domain.BalanceSnapshot
	require.NoError(t, db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		snap, err = tx.Snapshots().Get(ctx, company, emp, policy.ID)
		return err
	}))
	require.Equal(t, int64(100), snap.AvailableMinutes, "balance above the carryover cap must have been expired")
}
