package accrualservice

import (
	"context"
	"fmt"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/ledgerservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
)

// PayrollEntry is one line of the payroll-processed webhook payload
// (spec §4.10).
type PayrollEntry struct {
	EmployeeID    domain.EmployeeID
	WorkedMinutes int64
}

// ProcessPayroll implements spec §4.10: for each payroll entry, every active
// assignment whose version is ACCRUAL/HOURS_WORKED on period_end accrues
// amount = worked_minutes*accrue_minutes/per_worked_minutes (integer
// division), bank-cap clamped, idempotent on payrollRunID.
func (s *Service) ProcessPayroll(ctx context.Context, companyID domain.CompanyID, payrollRunID string, periodEnd domain.CivilDate, entries []PayrollEntry) (Result, error) {
	var res Result
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, pe := range entries {
			assignments, err := tx.Assignments().AllActiveOn(ctx, &companyID, periodEnd)
			if err != nil {
				res.Errors++
				continue
			}
			for _, a := range assignments {
				if a.EmployeeID != pe.EmployeeID {
					continue
				}
				version, err := tx.Policies().VersionEffectiveOn(ctx, a.PolicyID, periodEnd)
				if err != nil {
					res.Errors++
					continue
				}
				if version == nil || version.Type != domain.PolicyAccrual || version.AccrualMethod == nil || *version.AccrualMethod != domain.AccrualHoursWorked {
					continue
				}
				res.Processed++
				posted, err := s.accruePayrollOne(ctx, tx, a, *version, pe, payrollRunID, periodEnd)
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
		}
		return nil
	})
	return res, err
}

func (s *Service) accruePayrollOne(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, pe PayrollEntry, payrollRunID string, periodEnd domain.CivilDate) (bool, error) {
	ratio := version.Settings.AccrualRatio
	if ratio == nil || ratio.PerWorkedMinutes <= 0 {
		return false, nil
	}
	amount := (pe.WorkedMinutes * ratio.AccrueMinutes) / ratio.PerWorkedMinutes

	snap, err := snapshotservice.GetForUpdate(ctx, tx, a.CompanyID, a.EmployeeID, a.PolicyID)
	if err != nil {
		return false, err
	}
	amount = clampToBankCap(amount, version.Settings.BankCapMinutes, snap.AccruedMinutes)
	if amount <= 0 {
		return false, nil
	}

	now := periodEnd.AtUTCMidnight()
	sourceID := fmt.Sprintf("payroll:%s:%s:%s", payrollRunID, a.EmployeeID.String(), a.PolicyID.String())
	poster := ledgerservice.New()
	posted, err := poster.Post(ctx, tx, ledgerservice.PostInput{
		CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
		EntryType: domain.EntryAccrual, Magnitude: amount, EffectiveAt: now,
		SourceType: domain.SourcePayroll, SourceID: sourceID,
		Metadata: map[string]any{"payroll_run_id": payrollRunID, "worked_minutes": pe.WorkedMinutes, "computed_amount": amount},
	}, now)
	if err != nil || !posted {
		return false, err
	}
	if err := snapshotservice.Apply(ctx, tx, snap, amount, 0, 0, now); err != nil {
		return false, err
	}
	if err := s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryAccrual, "amount_minutes": amount, "policy_id": a.PolicyID.String()}); err != nil {
		return false, err
	}
	return true, nil
}
