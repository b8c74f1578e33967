package domain

import "time"

// AuditLog is an immutable record of one mutation. System-authored entries
// (accrual, carryover, expiration) use SystemActorID. Before/After are the
// JSON-able maps the mutating service builds; service/audit stores them as
// given.
type AuditLog struct {
	ID         AuditLogID
	CompanyID  CompanyID
	ActorID    EmployeeID
	EntityType string
	EntityID   string
	Action     AuditAction
	Before     map[string]any
	After      map[string]any
	CreatedAt  time.Time
}
