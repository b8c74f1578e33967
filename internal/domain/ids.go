/*
Package domain holds the tenant-scoped entities described in the ledger's
data model: policies and their versions, assignments, requests, ledger
entries, balance snapshots, holidays, and audit records.

All identifiers are 128-bit UUIDs, wrapped in distinct uuid.UUID-backed types so
the compiler catches an EmployeeID passed where a PolicyID is expected. All
monetary quantities in this system are integer minutes - never a float,
never a decimal - so that identical inputs produce bit-for-bit identical
ledger amounts (see the Integer exactness property in the spec).

SEE ALSO:
  - policy.go: Policy / PolicyVersion / Settings
  - ledger.go: LedgerEntry and its sign conventions
  - snapshot.go: BalanceSnapshot and the I1/I2 invariants
*/
package domain

import "github.com/google/uuid"

type CompanyID uuid.UUID
type EmployeeID uuid.UUID
type PolicyID uuid.UUID
type PolicyVersionID uuid.UUID
type AssignmentID uuid.UUID
type RequestID uuid.UUID
type LedgerEntryID uuid.UUID
type HolidayID uuid.UUID
type AuditLogID uuid.UUID

// SystemActorID is the all-zero UUID used for system-authored audit entries.
var SystemActorID = EmployeeID(uuid.Nil)

func NewCompanyID() CompanyID        { return CompanyID(uuid.New()) }
func NewEmployeeID() EmployeeID      { return EmployeeID(uuid.New()) }
func NewPolicyID() PolicyID          { return PolicyID(uuid.New()) }
func NewPolicyVersionID() PolicyVersionID { return PolicyVersionID(uuid.New()) }
func NewAssignmentID() AssignmentID  { return AssignmentID(uuid.New()) }
func NewRequestID() RequestID        { return RequestID(uuid.New()) }
func NewLedgerEntryID() LedgerEntryID { return LedgerEntryID(uuid.New()) }
func NewHolidayID() HolidayID        { return HolidayID(uuid.New()) }
func NewAuditLogID() AuditLogID      { return AuditLogID(uuid.New()) }

func (id CompanyID) String() string        { return uuid.UUID(id).String() }
func (id EmployeeID) String() string       { return uuid.UUID(id).String() }
func (id PolicyID) String() string         { return uuid.UUID(id).String() }
func (id PolicyVersionID) String() string  { return uuid.UUID(id).String() }
func (id AssignmentID) String() string     { return uuid.UUID(id).String() }
func (id RequestID) String() string        { return uuid.UUID(id).String() }
func (id LedgerEntryID) String() string    { return uuid.UUID(id).String() }
func (id HolidayID) String() string        { return uuid.UUID(id).String() }
func (id AuditLogID) String() string       { return uuid.UUID(id).String() }

func (id CompanyID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := uuid.Parse(s)
	return CompanyID(u), err
}

func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := uuid.Parse(s)
	return EmployeeID(u), err
}

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := uuid.Parse(s)
	return PolicyID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	return RequestID(u), err
}

func ParseAssignmentID(s string) (AssignmentID, error) {
	u, err := uuid.Parse(s)
	return AssignmentID(u), err
}

func ParseHolidayID(s string) (HolidayID, error) {
	u, err := uuid.Parse(s)
	return HolidayID(u), err
}
