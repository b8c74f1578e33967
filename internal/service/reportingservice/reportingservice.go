/*
Package reportingservice implements the three read-only reporting queries
(spec §4.14): audit log, company balance summary, and ledger export. Every
query pins company_id so no cross-tenant leakage is possible through a
filter the caller controls.

Grounded on the teacher's generic/projection.go read-model folding, here
reduced to plain paginated passthroughs since the projections themselves
already live in the snapshot and ledger stores.
*/
package reportingservice

import (
	"context"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store store.Store
}

func New(s store.Store) *Service { return &Service{store: s} }

func (s *Service) AuditLog(ctx context.Context, f store.AuditFilter) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Audit().List(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) LedgerExport(ctx context.Context, f store.LedgerListFilter) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Ledger().List(ctx, f)
		return err
	})
	return out, err
}

// BalanceSummary is one row of the company balance summary report: an
// active assignment joined with its policy's key and its snapshot (nil when
// none has been materialized). The row carries no policy version.
type BalanceSummary struct {
	EmployeeID domain.EmployeeID
	PolicyID   domain.PolicyID
	PolicyKey  string
	Snapshot   *domain.BalanceSnapshot
}

func (s *Service) BalanceSummary(ctx context.Context, companyID domain.CompanyID, targetDate domain.CivilDate, offset, limit int) ([]BalanceSummary, error) {
	var out []BalanceSummary
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		assignments, err := tx.Assignments().AllActiveOn(ctx, &companyID, targetDate)
		if err != nil {
			return err
		}
		if offset < len(assignments) {
			end := len(assignments)
			if limit > 0 && offset+limit < end {
				end = offset + limit
			}
			assignments = assignments[offset:end]
		} else {
			assignments = nil
		}
		for _, a := range assignments {
			policy, err := tx.Policies().GetByID(ctx, companyID, a.PolicyID)
			if err != nil {
				return err
			}
			snap, err := tx.Snapshots().Get(ctx, companyID, a.EmployeeID, a.PolicyID)
			if err != nil {
				return err
			}
			row := BalanceSummary{EmployeeID: a.EmployeeID, PolicyID: a.PolicyID, Snapshot: snap}
			if policy != nil {
				row.PolicyKey = policy.Key
			}
			out = append(out, row)
		}
		return nil
	})
	return out, err
}
