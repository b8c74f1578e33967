package requestservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/ledgertest"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/requestservice"
	"github.com/dayledger/pto/internal/store/memstore"
)

type fixture struct {
	db         *memstore.DB
	requests   *requestservice.Service
	companyID  domain.CompanyID
	employeeID domain.EmployeeID
	policyID   domain.PolicyID
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := memstore.New()
	employees := directory.NewMemoryDirectory()
	aw := audit.New()

	company := domain.NewCompanyID()
	emp := domain.NewEmployeeID()
	employees.PutEmployee(&directory.Employee{
		ID: emp, CompanyID: company, FirstName: "Jordan", LastName: "Ellis",
		WorkdayMinutes: 480, Timezone: "America/New_York",
	})

	rate := int64(10_000)
	method := domain.AccrualTime
	policy, _, err := policyservice.New(db, aw).Create(context.Background(), policyservice.CreateInput{
		CompanyID: company, Key: "pto-standard", Category: "PTO", Type: domain.PolicyAccrual,
		AccrualMethod: &method,
		Settings: domain.Settings{
			Unit:              "MINUTES",
			AccrualFrequency:  domain.FrequencyDaily,
			AccrualTiming:     domain.TimingEndOfPeriod,
			RateMinutesPerDay: &rate,
			AllowNegative:     true,
		},
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1),
		ActorID:       emp,
	})
	require.NoError(t, err)

	_, err = assignmentservice.New(db, aw).Create(context.Background(), assignmentservice.CreateInput{
		CompanyID: company, EmployeeID: emp, PolicyID: policy.ID,
		EffectiveFrom: domain.NewCivilDate(2025, time.January, 1), ActorID: emp,
	})
	require.NoError(t, err)

	return fixture{
		db: db, companyID: company, employeeID: emp, policyID: policy.ID,
		requests: requestservice.New(db, employees, aw),
	}
}

func TestSubmitApproveWorkflowMovesHoldToUsage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.requests.Submit(ctx, requestservice.SubmitInput{
		CompanyID: f.companyID, EmployeeID: f.employeeID, PolicyID: f.policyID,
		StartAt: time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.June, 2, 17, 0, 0, 0, time.UTC),
		Reason:  "vacation",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RequestSubmitted, req.Status)
	require.Equal(t, int64(480), req.RequestedMinutes)

	ledgertest.AssertSnapshotConsistent(t, ctx, f.db, f.companyID, f.employeeID, f.policyID)

	approved, err := f.requests.Approve(ctx, f.companyID, req.ID, f.employeeID, "approved")
	require.NoError(t, err)
	require.Equal(t, domain.RequestApproved, approved.Status)

	ledgertest.AssertSnapshotConsistent(t, ctx, f.db, f.companyID, f.employeeID, f.policyID)
}

func TestSubmitDenyReleasesHoldWithoutUsage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.requests.Submit(ctx, requestservice.SubmitInput{
		CompanyID: f.companyID, EmployeeID: f.employeeID, PolicyID: f.policyID,
		StartAt: time.Date(2025, time.July, 7, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.July, 7, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	denied, err := f.requests.Deny(ctx, f.companyID, req.ID, f.employeeID, "denied")
	require.NoError(t, err)
	require.Equal(t, domain.RequestDenied, denied.Status)
	require.False(t, denied.CanTransitionTo(domain.RequestApproved), "a denied request is terminal")

	ledgertest.AssertSnapshotConsistent(t, ctx, f.db, f.companyID, f.employeeID, f.policyID)
}

func TestCancelRejectsNonOwnerNonAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.requests.Submit(ctx, requestservice.SubmitInput{
		CompanyID: f.companyID, EmployeeID: f.employeeID, PolicyID: f.policyID,
		StartAt: time.Date(2025, time.August, 4, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.August, 4, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	stranger := domain.NewEmployeeID()
	_, err = f.requests.Cancel(ctx, f.companyID, req.ID, stranger, domain.RoleEmployee, "")
	require.Error(t, err)

	_, err = f.requests.Cancel(ctx, f.companyID, req.ID, f.employeeID, domain.RoleEmployee, "changed my mind")
	require.NoError(t, err)
}

func TestSubmitIsIdempotentOnIdempotencyKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := requestservice.SubmitInput{
		CompanyID: f.companyID, EmployeeID: f.employeeID, PolicyID: f.policyID,
		StartAt:        time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2025, time.September, 1, 17, 0, 0, 0, time.UTC),
		IdempotencyKey: "submit-key-1",
	}

	first, err := f.requests.Submit(ctx, in)
	require.NoError(t, err)
	second, err := f.requests.Submit(ctx, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "a repeated idempotency key must return the original request, not create a second one")
}
