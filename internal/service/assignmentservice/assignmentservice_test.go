package assignmentservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/store/memstore"
)

func newUnlimitedPolicy(t *testing.T, db *memstore.DB, aw *audit.Writer, company domain.CompanyID, actor domain.EmployeeID) domain.PolicyID {
	t.Helper()
	policy, _, err := policyservice.New(db, aw).Create(context.Background(), policyservice.CreateInput{
		CompanyID: company, Key: "unlimited-pto", Category: "PTO", Type: domain.PolicyUnlimited,
		Settings:      domain.Settings{Unit: "MINUTES"},
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1),
		ActorID:       actor,
	})
	require.NoError(t, err)
	return policy.ID
}

func TestCreateRejectsOverlappingAssignment(t *testing.T) {
	db := memstore.New()
	aw := audit.New()
	svc := assignmentservice.New(db, aw)
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()
	policyID := newUnlimitedPolicy(t, db, aw, company, emp)

	from := domain.NewCivilDate(2025, time.March, 1)
	to := domain.NewCivilDate(2025, time.December, 1)
	_, err := svc.Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policyID,
		EffectiveFrom: from, EffectiveTo: &to, ActorID: emp,
	})
	require.NoError(t, err)

	overlapStart := domain.NewCivilDate(2025, time.June, 1)
	_, err = svc.Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policyID,
		EffectiveFrom: overlapStart, ActorID: emp,
	})
	require.Error(t, err, "a second assignment overlapping the first for the same employee and policy must be rejected")
}

func TestCreateAllowsBackToBackAssignments(t *testing.T) {
	db := memstore.New()
	aw := audit.New()
	svc := assignmentservice.New(db, aw)
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()
	policyID := newUnlimitedPolicy(t, db, aw, company, emp)

	from := domain.NewCivilDate(2025, time.January, 1)
	to := domain.NewCivilDate(2025, time.June, 1)
	_, err := svc.Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policyID,
		EffectiveFrom: from, EffectiveTo: &to, ActorID: emp,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policyID,
		EffectiveFrom: to, ActorID: emp,
	})
	require.NoError(t, err, "effective_to is exclusive, so a new assignment starting exactly there must not be treated as overlapping")
}

func TestCreateRejectsInvertedDateRange(t *testing.T) {
	db := memstore.New()
	aw := audit.New()
	svc := assignmentservice.New(db, aw)
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()
	policyID := newUnlimitedPolicy(t, db, aw, company, emp)

	from := domain.NewCivilDate(2025, time.June, 1)
	to := domain.NewCivilDate(2025, time.January, 1)
	_, err := svc.Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policyID,
		EffectiveFrom: from, EffectiveTo: &to, ActorID: emp,
	})
	require.Error(t, err)
}
