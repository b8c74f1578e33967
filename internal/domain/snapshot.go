package domain

import "time"

// BalanceSnapshot is the per-(company, employee, policy) cache of the
// ledger's running total. Primary key: (company_id, employee_id, policy_id).
// Version is an optimistic counter incremented on every mutation.
type BalanceSnapshot struct {
	CompanyID        CompanyID
	EmployeeID       EmployeeID
	PolicyID         PolicyID
	AccruedMinutes   int64
	UsedMinutes      int64
	HeldMinutes      int64
	AvailableMinutes int64
	UpdatedAt        time.Time
	Version          int64
}

// Recompute enforces invariant I1 (available = accrued - used - held) after
// any mutation to the three underlying totals.
func (s *BalanceSnapshot) Recompute() {
	s.AvailableMinutes = s.AccruedMinutes - s.UsedMinutes - s.HeldMinutes
}

// NewSnapshotFromLedger materializes a snapshot from a full ledger replay,
// the lazy-materialization path in the balance snapshot helper (spec §4.5).
func NewSnapshotFromLedger(companyID CompanyID, employeeID EmployeeID, policyID PolicyID, entries []LedgerEntry, now time.Time) BalanceSnapshot {
	accrued, used, held := RecomputeBalance(entries)
	s := BalanceSnapshot{
		CompanyID:      companyID,
		EmployeeID:     employeeID,
		PolicyID:       policyID,
		AccruedMinutes: accrued,
		UsedMinutes:    used,
		HeldMinutes:    held,
		UpdatedAt:      now,
		Version:        1,
	}
	s.Recompute()
	return s
}

// ConsistentWithLedger checks invariant I2: recomputing from entries matches
// the snapshot's three totals exactly.
func (s BalanceSnapshot) ConsistentWithLedger(entries []LedgerEntry) bool {
	accrued, used, held := RecomputeBalance(entries)
	return accrued == s.AccruedMinutes && used == s.UsedMinutes && held == s.HeldMinutes
}
