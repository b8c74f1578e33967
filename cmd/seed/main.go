/*
main.go - a dev-only seed script (spec's seed-script supplement, modeled on
the original's seed.py): populates one company, an employee and an admin,
one TIME accrual policy, an assignment, an opening-balance adjustment, and a
submitted request so a developer can exercise the HTTP surface without
hand-crafting fixtures.

Against -database-url it applies the bundled schema and seeds Postgres
directly; without it, it seeds an in-process memstore. Either way it prints
the generated IDs, useful for quickly sanity-checking service wiring.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/requestservice"
	"github.com/dayledger/pto/internal/store"
	"github.com/dayledger/pto/internal/store/memstore"
	"github.com/dayledger/pto/internal/store/postgres"
)

func main() {
	dsn := flag.String("database-url", "", "Postgres connection string; omit to seed an in-process memstore")
	flag.Parse()

	ctx := context.Background()

	var db store.Store
	if *dsn != "" {
		pgStore, err := postgres.New(ctx, *dsn)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer pgStore.Close()
		if err := applySchema(ctx, *dsn); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
		db = pgStore
	} else {
		db = memstore.New()
	}

	employees := directory.NewMemoryDirectory()
	auditWriter := audit.New()

	companyID := domain.NewCompanyID()
	employeeID := domain.NewEmployeeID()
	adminID := domain.NewEmployeeID()
	hireDate := domain.NewCivilDate(2023, time.January, 9)

	employees.PutCompany(&directory.Company{ID: companyID, Name: "Acme Ops", Timezone: "America/New_York", DefaultWorkdayMinutes: 480})
	employees.PutEmployee(&directory.Employee{ID: employeeID, CompanyID: companyID, FirstName: "Dana", LastName: "Lee", PayType: "salaried", WorkdayMinutes: 480, Timezone: "America/New_York", HireDate: &hireDate})
	employees.PutEmployee(&directory.Employee{ID: adminID, CompanyID: companyID, FirstName: "Priya", LastName: "Nair", PayType: "salaried", WorkdayMinutes: 480, Timezone: "America/New_York", HireDate: &hireDate})

	rateDay := int64(32) // 32 minutes/day; DAILY accrual posts every calendar day, i.e. ~195 hours/year
	method := domain.AccrualTime
	policySvc := policyservice.New(db, auditWriter)
	policy, _, err := policySvc.Create(ctx, policyservice.CreateInput{
		CompanyID:     companyID,
		Key:           "pto-standard",
		Category:      "PTO",
		Type:          domain.PolicyAccrual,
		AccrualMethod: &method,
		Settings: domain.Settings{
			Unit:                "MINUTES",
			AccrualFrequency:    domain.FrequencyDaily,
			AccrualTiming:       domain.TimingEndOfPeriod,
			RateMinutesPerDay:   &rateDay,
			Proration:           domain.ProrationDaysActive,
			AllowNegative:       false,
			Carryover:           domain.CarryoverRule{Enabled: true, ExpiresAfterDays: intPtr(90)},
			Expiration:          domain.ExpirationRule{},
		},
		EffectiveFrom: domain.NewCivilDate(2023, time.January, 1),
		ActorID:       adminID,
		ChangeReason:  "initial seed",
	})
	if err != nil {
		log.Fatalf("failed to create policy: %v", err)
	}

	assignmentSvc := assignmentservice.New(db, auditWriter)
	assignment, err := assignmentSvc.Create(ctx, assignmentservice.CreateInput{
		CompanyID:     companyID,
		EmployeeID:    employeeID,
		PolicyID:      policy.ID,
		EffectiveFrom: hireDate,
		ActorID:       adminID,
	})
	if err != nil {
		log.Fatalf("failed to create assignment: %v", err)
	}

	requestSvc := requestservice.New(db, employees, auditWriter)
	if err := requestSvc.Adjust(ctx, requestservice.AdjustInput{
		CompanyID: companyID, EmployeeID: employeeID, PolicyID: policy.ID,
		AmountMinutes: 2400, Reason: "dev seed opening balance", ActorID: adminID,
	}); err != nil {
		log.Fatalf("failed to post opening balance: %v", err)
	}
	start := time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.August, 10, 17, 0, 0, 0, time.UTC)
	req, err := requestSvc.Submit(ctx, requestservice.SubmitInput{
		CompanyID:      companyID,
		EmployeeID:     employeeID,
		PolicyID:       policy.ID,
		StartAt:        start,
		EndAt:          end,
		Reason:         "dev seed vacation day",
		IdempotencyKey: "seed-request-1",
	})
	if err != nil {
		log.Fatalf("failed to submit request: %v", err)
	}

	fmt.Printf("company_id=%s\n", companyID)
	fmt.Printf("admin_id=%s\n", adminID)
	fmt.Printf("employee_id=%s\n", employeeID)
	fmt.Printf("policy_id=%s\n", policy.ID)
	fmt.Printf("assignment_id=%s\n", assignment.ID)
	fmt.Printf("request_id=%s\n", req.ID)
}

func intPtr(n int) *int { return &n }

func applySchema(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, postgres.Schema)
	return err
}
