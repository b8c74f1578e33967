/*
Package carryoverservice implements the carryover engine (spec §4.11): on
Jan 1 only, every active assignment whose settings enable carryover caps its
available balance, expires the excess, and leaves a CARRYOVER marker entry
(amount 0) that the expiration engine's post-carryover clause later reads
back out of its metadata.

Grounded on the teacher's generic/period.go year-boundary helpers and
timeoff/accrual.go's per-assignment commit-once loop.
*/
package carryoverservice

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
	Carried   int
	Skipped   int
	Errors    int
}

// Run implements spec §4.11. It is a no-op on any date other than Jan 1.
func (s *Service) Run(ctx context.Context, targetDate domain.CivilDate, companyID *domain.CompanyID) (Result, error) {
	var res Result
	if targetDate.Month() != time.January || targetDate.Day() != 1 {
		return res, nil
	}
	yearProcessed := targetDate.Year() - 1

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
			if version == nil || version.Type != domain.PolicyAccrual || !version.Settings.Carryover.Enabled {
				continue
			}
			res.Processed++
			carried, err := s.carryOne(ctx, tx, a, *version, yearProcessed, targetDate)
			if err != nil {
				res.Errors++
				continue
			}
			if carried {
				res.Carried++
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	return res, err
}

func (s *Service) carryOne(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, yearProcessed int, now domain.CivilDate) (bool, error) {
	snap, err := snapshotservice.GetForUpdate(ctx, tx, a.CompanyID, a.EmployeeID, a.PolicyID)
	if err != nil {
		return false, err
	}
	available := snap.AccruedMinutes - snap.UsedMinutes - snap.HeldMinutes
	if available <= 0 {
		return false, nil
	}

	carry := available
	rule := version.Settings.Carryover
	if rule.CapMinutes != nil && *rule.CapMinutes < available {
		carry = *rule.CapMinutes
	}
	expire := available - carry
	nowInstant := now.AtUTCMidnight()

	if expire > 0 {
		sourceID := fmt.Sprintf("carryover:%s:%s:%d", a.PolicyID.String(), a.EmployeeID.String(), yearProcessed)
		posted, err := s.poster.Post(ctx, tx, ledgerservice.PostInput{
			CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
			EntryType: domain.EntryExpiration, Magnitude: expire, EffectiveAt: nowInstant,
			SourceType: domain.SourceSystem, SourceID: sourceID,
			Metadata: map[string]any{"reason": "year_end_carryover_excess", "year": yearProcessed, "expired_minutes": expire, "cap_minutes": rule.CapMinutes},
		}, nowInstant)
		if err != nil {
			return false, err
		}
		if posted {
			if err := snapshotservice.Apply(ctx, tx, snap, -expire, 0, 0, nowInstant); err != nil {
				return false, err
			}
			if err := s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryExpiration, "amount_minutes": -expire}); err != nil {
				return false, err
			}
		}
	}
	if err := s.postMarker(ctx, tx, a, version, yearProcessed, now, carry, expire); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) postMarker(ctx context.Context, tx store.Tx, a domain.Assignment, version domain.PolicyVersion, yearProcessed int, now domain.CivilDate, carried, expired int64) error {
	sourceID := fmt.Sprintf("carryover_marker:%s:%s:%d", a.PolicyID.String(), a.EmployeeID.String(), yearProcessed)
	nowInstant := now.AtUTCMidnight()
	var expiresAfterDays any
	if version.Settings.Carryover.ExpiresAfterDays != nil {
		expiresAfterDays = *version.Settings.Carryover.ExpiresAfterDays
	}
	posted, err := s.poster.Post(ctx, tx, ledgerservice.PostInput{
		CompanyID: a.CompanyID, EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, PolicyVersionID: version.ID,
		EntryType: domain.EntryCarryover, Magnitude: 0, EffectiveAt: nowInstant,
		SourceType: domain.SourceSystem, SourceID: sourceID,
		Metadata: map[string]any{
			"year": yearProcessed, "carried_minutes": carried, "expired_minutes": expired,
			"cap_minutes": version.Settings.Carryover.CapMinutes, "expires_after_days": expiresAfterDays,
		},
	}, nowInstant)
	if err != nil || !posted {
		return err
	}
	return s.audit.RecordSystem(ctx, tx.Audit(), a.CompanyID, "ledger_entry", sourceID, domain.ActionCreate, nil, map[string]any{"entry_type": domain.EntryCarryover, "carried_minutes": carried, "expired_minutes": expired})
}
