package accrualservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/ledgertest"
	"github.com/dayledger/pto/internal/service/accrualservice"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/store/memstore"
)

func TestRunTimeBasedAccruesAndIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	employees := directory.NewMemoryDirectory()
	aw := audit.New()
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()
	employees.PutEmployee(&directory.Employee{ID: emp, CompanyID: company, WorkdayMinutes: 480})

	rate := int64(32)
	method := domain.AccrualTime
	policy, _, err := policyservice.New(db, aw).Create(ctx, policyservice.CreateInput{
		CompanyID: company, Key: "pto-standard", Category: "PTO", Type: domain.PolicyAccrual,
		AccrualMethod: &method,
		Settings: domain.Settings{
			Unit: "MINUTES", AccrualFrequency: domain.FrequencyDaily,
			AccrualTiming: domain.TimingEndOfPeriod, RateMinutesPerDay: &rate,
		},
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1),
		ActorID:       emp,
	})
	require.NoError(t, err)

	_, err = assignmentservice.New(db, aw).Create(ctx, assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policy.ID,
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1), ActorID: emp,
	})
	require.NoError(t, err)

	svc := accrualservice.New(db, employees, aw)
	targetDate := domain.NewCivilDate(2025, time.January, 15)

	res, err := svc.RunTimeBased(ctx, targetDate, &company)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accrued)

	ledgertest.AssertSnapshotConsistent(t, ctx, db, company, emp, policy.ID)

	res, err = svc.RunTimeBased(ctx, targetDate, &company)
	require.NoError(t, err)
	require.Equal(t, 0, res.Accrued, "re-running the same target date must not double-post the day's accrual")
	require.Equal(t, 1, res.Skipped)
}

func TestProcessPayrollAccruesProportionalToWorkedMinutes(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	employees := directory.NewMemoryDirectory()
	aw := audit.New()
	company, emp := domain.NewCompanyID(), domain.NewEmployeeID()
	employees.PutEmployee(&directory.Employee{ID: emp, CompanyID: company, WorkdayMinutes: 480})

	method := domain.AccrualHoursWorked
	policy, _, err := policyservice.New(db, aw).Create(ctx, policyservice.CreateInput{
		CompanyID: company, Key: "pto-hourly", Category: "PTO", Type: domain.PolicyAccrual,
		AccrualMethod: &method,
		Settings: domain.Settings{
			Unit: "MINUTES",
			AccrualRatio: &domain.AccrualRatio{AccrueMinutes: 1, PerWorkedMinutes: 40},
		},
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1),
		ActorID:       emp,
	})
	require.NoError(t, err)

	_, err = assignmentservice.New(db, aw).Create(ctx, assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policy.ID,
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1), ActorID: emp,
	})
	require.NoError(t, err)

	svc := accrualservice.New(db, employees, aw)
	periodEnd := domain.NewCivilDate(2025, time.January, 31)
	entries := []accrualservice.PayrollEntry{{EmployeeID: emp, WorkedMinutes: 4000}}

	res, err := svc.ProcessPayroll(ctx, company, "payroll-run-january", periodEnd, entries)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accrued)

	ledgertest.AssertSnapshotConsistent(t, ctx, db, company, emp, policy.ID)

	ledgertest.AssertIdempotent(t, ctx, db, company, "payroll:payroll-run-january:"+emp.String()+":"+policy.ID.String(), func() error {
		_, err := svc.ProcessPayroll(ctx, company, "payroll-run-january", periodEnd, entries)
		return err
	})
}
