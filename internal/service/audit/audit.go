/*
Package audit implements the audit writer (spec §4.1): every mutation to a
Policy, Assignment, Request, or BalanceSnapshot appends one AuditLog row in
the same transaction as the mutation itself, recording actor, entity,
action, and a before/after pair of stable JSON-able documents.

Grounded on the teacher's generic/projection.go, which folds ledger history
into read models using the same "map[string]any before/after" shape this
package writes directly instead of projecting.
*/
package audit

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

// Writer appends audit rows. It takes no store.Store of its own - callers
// invoke it with the store.AuditStore bound to their current transaction,
// so the audit append always lands in the same commit as the mutation it
// describes.
type Writer struct{}

func New() *Writer { return &Writer{} }

func (w *Writer) Record(ctx context.Context, tx store.AuditStore, companyID domain.CompanyID, actorID domain.EmployeeID, entityType, entityID string, action domain.AuditAction, before, after map[string]any) error {
	entry := domain.AuditLog{
		ID:         domain.NewAuditLogID(),
		CompanyID:  companyID,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		CreatedAt:  time.Now().UTC(),
	}
	return tx.Append(ctx, entry)
}

// RecordSystem is Record with SystemActorID, used by the worker's
// accrual/carryover/expiration engines which have no human actor.
func (w *Writer) RecordSystem(ctx context.Context, tx store.AuditStore, companyID domain.CompanyID, entityType, entityID string, action domain.AuditAction, before, after map[string]any) error {
	return w.Record(ctx, tx, companyID, domain.SystemActorID, entityType, entityID, action, before, after)
}
