/*
ledger.go - the append-only LedgerEntry and the sign-convention helpers that
keep every poster in the system honest.

INVARIANTS (spec I2, I3):
  - Recomputing (accrued, used, held) from the ledger always matches the
    snapshot: accrued = sum of signed ACCRUAL/ADJUSTMENT/CARRYOVER/EXPIRATION
    amounts; used = sum of |USAGE|; held = sum of |HOLD| - sum of |HOLD_RELEASE|.
  - (source_type, source_id, entry_type) is unique - see ledgerservice.Poster
    for how that uniqueness becomes at-most-once posting.

Nothing here touches storage; SignedAmount exists so callers can't
accidentally post a USAGE with a positive amount or a HOLD_RELEASE with a
negative one.
*/
package domain

import "time"

type LedgerEntry struct {
	ID              LedgerEntryID
	CompanyID       CompanyID
	EmployeeID      EmployeeID
	PolicyID        PolicyID
	PolicyVersionID PolicyVersionID
	EntryType       EntryType
	AmountMinutes   int64
	EffectiveAt     time.Time
	SourceType      SourceType
	SourceID        string
	Metadata        map[string]any
	CreatedAt       time.Time
}

// SignedAmount enforces the entry type's fixed sign before insertion:
// HOLD, USAGE and EXPIRATION always come out negative and HOLD_RELEASE
// positive, whatever sign the caller passed; ACCRUAL, ADJUSTMENT and
// CARRYOVER keep the caller's sign.
func SignedAmount(entryType EntryType, magnitude int64) int64 {
	abs := magnitude
	if abs < 0 {
		abs = -abs
	}
	switch entryType {
	case EntryHold, EntryUsage, EntryExpiration:
		return -abs
	case EntryHoldRelease:
		return abs
	case EntryAccrual, EntryAdjustment, EntryCarryover:
		return magnitude // caller-determined sign
	default:
		return magnitude
	}
}

// RecomputeBalance implements invariant I2: folding a full ledger history
// for one (company, employee, policy) triple back into (accrued, used, held).
func RecomputeBalance(entries []LedgerEntry) (accrued, used, held int64) {
	for _, e := range entries {
		switch e.EntryType {
		case EntryAccrual, EntryAdjustment, EntryCarryover:
			accrued += e.AmountMinutes
		case EntryExpiration:
			accrued += e.AmountMinutes // stored negative already
		case EntryUsage:
			used += abs64(e.AmountMinutes)
		case EntryHold:
			held += abs64(e.AmountMinutes)
		case EntryHoldRelease:
			held -= abs64(e.AmountMinutes)
		}
	}
	return accrued, used, held
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
