/*
Package accrualservice implements the two accrual engines: time-based
(spec §4.9), run once per day by the worker for every assignment whose
policy version in effect on the target date is ACCRUAL/TIME, and
hours-worked (spec §4.10),
driven by the payroll webhook. Both share the bank-cap clamp and
idempotent-posting discipline; time.go holds the former, hours.go the
latter.

Grounded on the teacher's generic/accrual.go period/tier resolution and
timeoff/accrual.go's per-assignment iteration loop, adapted from the
teacher's ResourceType-dispatched rate lookup to Settings.RateForTenure.
*/
package accrualservice

import (
	"context"
	"fmt"
	"time"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/ledgerservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store     store.Store
	employees directory.EmployeeDirectory
	audit     *audit.Writer
	poster    *ledgerservice.Poster
}

func New(s store.Store, employees directory.EmployeeDirectory, a *audit.Writer) *Service {
	return &Service{store: s, employees: employees, audit: a, poster: ledgerservice.New()}
}

// Result mirrors the per-run counters spec §4.9/§4.13 require the worker to
// log and the accrual-trigger endpoint to return.
type Result struct {
	Processed int
	Accrued   int
	Skipped   int
	Errors    int
}

// RunTimeBased implements spec §4.9. companyID, when non-nil, restricts the
// run to one tenant (used by the admin backfill endpoint); nil runs across
// all tenants (used by the worker).
func (s *Service) RunTimeBased(ctx context.Context, targetDate domain.CivilDate, companyID *domain.CompanyID) (Result, error) {
	var res Result
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		assignments, err := tx.Assignments().AllActiveOn(ctx, companyID, targetDate)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			version, err := tx.Policies().VersionEffectiveOn(ctx, a.PolicyID, targetDate)
			if err != nil {
				res.Errors++
				continue
			}
			if version == nil || version.Type != domain.PolicyAccrual || version.AccrualMethod == nil || *version.AccrualMethod != domain.AccrualTime {
				continue
			}
			res.Processed++
			posted, err := s.accrueOne(ctx, tx, a, *version, targetDate)
			if err != nil {
				res.Errors++
				continue
			}
			if posted {
				res.Accrued++
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	return res, err
}

func (s *Service) accrueOne(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, target domain.CivilDate) (bool, error) {
	settings := version.Settings
	if !isAccrualDate(settings.AccrualFrequency, settings.AccrualTiming, target) {
		return false, nil
	}

	start := a.EffectiveFrom
	if emp, err := s.employees.Get(ctx, a.CompanyID, a.EmployeeID); err == nil && emp != nil && emp.HireDate != nil {
		start = *emp.HireDate
	}
	months := monthsBetween(start, target)
	rate := settings.RateForTenure(months)

	var amount int64
	if settings.Proration == domain.ProrationNone {
		amount = rate
	} else {
		pStart, pEnd := periodBounds(settings.AccrualFrequency, target)
		totalDays := domain.DaysInRange(pStart, pEnd)
		activeStart := a.EffectiveFrom
		if pStart.After(activeStart) {
			activeStart = pStart
		}
		activeDays := domain.DaysInRange(activeStart, pEnd)
		if activeDays < 0 {
			activeDays = 0
		}
		if activeDays > totalDays {
			activeDays = totalDays
		}
		if totalDays > 0 {
			amount = (rate * int64(activeDays)) / int64(totalDays)
		}
	}

	snap, err := snapshotservice.GetForUpdate(ctx, tx, a.CompanyID, a.EmployeeID, a.PolicyID)
	if err != nil {
		return false, err
	}
	amount = clampToBankCap(amount, settings.BankCapMinutes, snap.AccruedMinutes)
	if amount <= 0 {
		return false, nil
	}

	now := target.AtUTCMidnight()
	sourceID := fmt.Sprintf("accrual:%s:%s:%s", a.PolicyID.String(), a.EmployeeID.String(), target.String())
	posted, err := s.poster.Post(ctx, tx, ledgerservice.PostInput{
		CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
		EntryType: domain.EntryAccrual, Magnitude: amount, EffectiveAt: now,
		SourceType: domain.SourceSystem, SourceID: sourceID,
		Metadata: map[string]any{"frequency": settings.AccrualFrequency, "timing": settings.AccrualTiming, "computed_amount": amount},
	}, now)
	if err != nil || !posted {
		return false, err
	}
	if err := snapshotservice.Apply(ctx, tx, snap, amount, 0, 0, now); err != nil {
		return false, err
	}
	if err := s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryAccrual, "amount_minutes": amount, "policy_id": a.PolicyID.String(), "employee_id": a.EmployeeID.String()}); err != nil {
		return false, err
	}
	return true, nil
}

func isAccrualDate(freq domain.AccrualFrequency, timing domain.AccrualTiming, target domain.CivilDate) bool {
	switch freq {
	case domain.FrequencyDaily:
		return true
	case domain.FrequencyMonthly:
		if timing == domain.TimingStartOfPeriod {
			return target.Day() == 1
		}
		return target.Equal(domain.LastDayOfMonth(target.Year(), target.Month()))
	case domain.FrequencyYearly:
		if timing == domain.TimingStartOfPeriod {
			return target.Month() == time.January && target.Day() == 1
		}
		return target.Month() == time.December && target.Day() == 31
	default:
		return false
	}
}

func periodBounds(freq domain.AccrualFrequency, target domain.CivilDate) (domain.CivilDate, domain.CivilDate) {
	switch freq {
	case domain.FrequencyMonthly:
		start := domain.NewCivilDate(target.Year(), target.Month(), 1)
		return start, start.AddMonths(1)
	case domain.FrequencyYearly:
		start := domain.NewCivilDate(target.Year(), time.January, 1)
		return start, start.AddYears(1)
	default: // DAILY
		return target, target.AddDays(1)
	}
}

// monthsBetween computes the calendar-month difference per spec §4.9.c:
// (target.year - start.year)*12 + (target.month - start.month).
func monthsBetween(start, target domain.CivilDate) int {
	return (target.Year()-start.Year())*12 + (int(target.Month()) - int(start.Month()))
}

func clampToBankCap(amount int64, cap *int64, accrued int64) int64 {
	if cap == nil {
		return amount
	}
	headroom := *cap - accrued
	if headroom < 0 {
		headroom = 0
	}
	if amount > headroom {
		return headroom
	}
	return amount
}
