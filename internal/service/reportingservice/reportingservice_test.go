package reportingservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/reportingservice"
	"github.com/dayledger/pto/internal/store"
	"github.com/dayledger/pto/internal/store/memstore"
)

func TestBalanceSummaryListsOnlyActiveAssignmentsForCompany(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	aw := audit.New()
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()

	policy, _, err := policyservice.New(db, aw).Create(ctx, policyservice.CreateInput{
		CompanyID: company, Key: "unlimited-pto", Category: "PTO", Type: domain.PolicyUnlimited,
		Settings:      domain.Settings{Unit: "MINUTES"},
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1),
		ActorID:       emp,
	})
	require.NoError(t, err)

	_, err = assignmentservice.New(db, aw).Create(ctx, assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policy.ID,
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1), ActorID: emp,
	})
	require.NoError(t, err)

	svc := reportingservice.New(db)
	rows, err := svc.BalanceSummary(ctx, company, domain.NewCivilDate(2025, time.June, 1), 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "unlimited-pto", rows[0].PolicyKey)
}

func TestAuditLogFilterScopesToCompany(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	aw := audit.New()
	company, other, actor := domain.NewCompanyID(), domain.NewCompanyID(), domain.NewEmployeeID()

	require.NoError(t, db.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return aw.Record(ctx, tx.Audit(), company, actor, "policy", "p1", domain.ActionCreate, nil, map[string]any{"key": "pto-standard"})
	}))

	svc := reportingservice.New(db)
	entries, err := svc.AuditLog(ctx, store.AuditFilter{CompanyID: company})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = svc.AuditLog(ctx, store.AuditFilter{CompanyID: other})
	require.NoError(t, err)
	require.Empty(t, entries)
}
