/*
Package expirationservice implements the expiration engine (spec §4.12),
run daily by the worker. Two independent clauses fire per active accrual
assignment: a calendar-date clause driven by the policy's own expiration
rule, and a post-carryover clause that reads the prior year's CARRYOVER
marker back out of the ledger to expire whatever carried minutes remain.

Grounded on the teacher's generic/period.go and timeoff/accrual.go, in the
same per-assignment commit-once style as accrualservice and carryoverservice.
*/
package expirationservice

import (
	"context"
	"fmt"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/ledgerservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store  store.Store
	audit  *audit.Writer
	poster *ledgerservice.Poster
}

func New(s store.Store, a *audit.Writer) *Service {
	return &Service{store: s, audit: a, poster: ledgerservice.New()}
}

type Result struct {
	Processed int
	Expired   int
	Errors    int
}

// Run implements spec §4.12.
func (s *Service) Run(ctx context.Context, targetDate domain.CivilDate, companyID *domain.CompanyID) (Result, error) {
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
			if version == nil || version.Type != domain.PolicyAccrual {
				continue
			}
			res.Processed++
			expiredCalendar, err := s.calendarClause(ctx, tx, a, *version, targetDate)
			if err != nil {
				res.Errors++
				continue
			}
			expiredCarryover, err := s.postCarryoverClause(ctx, tx, a, *version, targetDate)
			if err != nil {
				res.Errors++
				continue
			}
			if expiredCalendar || expiredCarryover {
				res.Expired++
			}
		}
		return nil
	})
	return res, err
}

func (s *Service) calendarClause(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, target domain.CivilDate) (bool, error) {
	rule := version.Settings.Expiration
	if !rule.Enabled || rule.ExpiresOnMonth == nil || rule.ExpiresOnDay == nil {
		return false, nil
	}
	if int(target.Month()) != *rule.ExpiresOnMonth || target.Day() != *rule.ExpiresOnDay {
		return false, nil
	}

	snap, err := snapshotservice.GetForUpdate(ctx, tx, a.CompanyID, a.EmployeeID, a.PolicyID)
	if err != nil {
		return false, err
	}
	available := snap.AccruedMinutes - snap.UsedMinutes - snap.HeldMinutes
	if available <= 0 {
		return false, nil
	}

	now := target.AtUTCMidnight()
	sourceID := fmt.Sprintf("expiration:%s:%s:%d:%02d-%02d", a.PolicyID.String(), a.EmployeeID.String(), target.Year(), target.Month(), target.Day())
	posted, err := s.poster.Post(ctx, tx, ledgerservice.PostInput{
		CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
		EntryType: domain.EntryExpiration, Magnitude: available, EffectiveAt: now,
		SourceType: domain.SourceSystem, SourceID: sourceID,
		Metadata: map[string]any{"reason": "calendar_date_expiration", "expired_minutes": available, "expires_on": fmt.Sprintf("%02d-%02d", *rule.ExpiresOnMonth, *rule.ExpiresOnDay)},
	}, now)
	if err != nil || !posted {
		return false, err
	}
	if err := snapshotservice.Apply(ctx, tx, snap, -available, 0, 0, now); err != nil {
		return false, err
	}
	if err := s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryExpiration, "amount_minutes": -available}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) postCarryoverClause(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, target domain.CivilDate) (bool, error) {
	rule := version.Settings.Carryover
	if !rule.Enabled || rule.ExpiresAfterDays == nil {
		return false, nil
	}
	janFirst := domain.NewCivilDate(target.Year(), time.January, 1)
	if !target.Equal(janFirst.AddDays(*rule.ExpiresAfterDays)) {
		return false, nil
	}

	yearProcessed := target.Year() - 1
	markerSourceID := fmt.Sprintf("carryover_marker:%s:%s:%d", a.PolicyID.String(), a.EmployeeID.String(), yearProcessed)
	marker, err := tx.Ledger().FindBySource(ctx, a.CompanyID, domain.SourceSystem, markerSourceID, domain.EntryCarryover)
	if err != nil {
		return false, err
	}
	if marker == nil {
		return false, nil
	}
	carried, _ := marker.Metadata["carried_minutes"].(int64)
	if carried == 0 {
		if f, ok := marker.Metadata["carried_minutes"].(float64); ok {
			carried = int64(f)
		}
	}
	if carried <= 0 {
		return false, nil
	}

	snap, err := snapshotservice.GetForUpdate(ctx, tx, a.CompanyID, a.EmployeeID, a.PolicyID)
	if err != nil {
		return false, err
	}
	available := snap.AccruedMinutes - snap.UsedMinutes - snap.HeldMinutes
	if available < 0 {
		available = 0
	}
	expire := carried
	if available < expire {
		expire = available
	}
	if expire <= 0 {
		return false, nil
	}

	now := target.AtUTCMidnight()
	sourceID := fmt.Sprintf("carryover_expiry:%s:%s:%d", a.PolicyID.String(), a.EmployeeID.String(), target.Year())
	posted, err := s.poster.Post(ctx, tx, ledgerservice.PostInput{
		CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
		EntryType: domain.EntryExpiration, Magnitude: expire, EffectiveAt: now,
		SourceType: domain.SourceSystem, SourceID: sourceID,
		Metadata: map[string]any{"reason": "post_carryover_expiration", "expired_minutes": expire, "carryover_year": yearProcessed},
	}, now)
	if err != nil || !posted {
		return false, err
	}
	if err := snapshotservice.Apply(ctx, tx, snap, -expire, 0, 0, now); err != nil {
		return false, err
	}
	if err := s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryExpiration, "amount_minutes": -expire}); err != nil {
		return false, err
	}
	return true, nil
}
