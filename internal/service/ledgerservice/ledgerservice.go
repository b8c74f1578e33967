/*
Package ledgerservice implements the ledger poster (spec §4.6): the single
chokepoint every other component goes through to append a LedgerEntry.
Post is idempotent on (source_type, source_id, entry_type) - a second post
with the same triple is a no-op that returns posted=false rather than an
error, so callers that replay a webhook or re-run a worker tick don't have
to pre-check existence themselves.

Grounded on the teacher's generic/ledger.go Append/AppendBatch, which used a
similar idempotency-key dedup before appending; the nested-savepoint
semantics described here are carried out by store.LedgerStore.Post's
concrete implementations (memstore: a map lookup under the outer lock;
postgres: a real SAVEPOINT around the insert, released on success and
rolled back to on the unique-index collision).
*/
package ledgerservice

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

// Poster is a stateless helper; it receives the store.Tx bound to the
// caller's current transaction so a post always lands in the same commit as
// the snapshot update and audit record it accompanies.
type Poster struct{}

func New() *Poster { return &Poster{} }

type PostInput struct {
	CompanyID       domain.CompanyID
	EmployeeID      domain.EmployeeID
	PolicyID        domain.PolicyID
	PolicyVersionID domain.PolicyVersionID
	EntryType       domain.EntryType
	Magnitude       int64 // caller passes the unsigned magnitude; SignedAmount fixes the sign
	EffectiveAt     time.Time
	SourceType      domain.SourceType
	SourceID        string
	Metadata        map[string]any
}

func (p *Poster) Post(ctx context.Context, tx store.Tx, in PostInput, now time.Time) (bool, error) {
	entry := domain.LedgerEntry{
		ID:              domain.NewLedgerEntryID(),
		CompanyID:       in.CompanyID,
		EmployeeID:      in.EmployeeID,
		PolicyID:        in.PolicyID,
		PolicyVersionID: in.PolicyVersionID,
		EntryType:       in.EntryType,
		AmountMinutes:   domain.SignedAmount(in.EntryType, in.Magnitude),
		EffectiveAt:     in.EffectiveAt,
		SourceType:      in.SourceType,
		SourceID:        in.SourceID,
		Metadata:        in.Metadata,
		CreatedAt:       now,
	}
	return tx.Ledger().Post(ctx, entry)
}

// PostHold, PostHoldRelease and PostUsage post the three request-workflow
// entry types, all sharing source_id=request.id as spec §4.7 requires.
func (p *Poster) PostHold(ctx context.Context, tx store.Tx, version *domain.PolicyVersion, req domain.Request, now time.Time) (bool, error) {
	return p.Post(ctx, tx, PostInput{
		CompanyID: req.CompanyID, EmployeeID: req.EmployeeID, PolicyID: req.PolicyID,
		PolicyVersionID: versionID(version), EntryType: domain.EntryHold, Magnitude: req.RequestedMinutes,
		EffectiveAt: now, SourceType: domain.SourceRequest, SourceID: req.ID.String(),
	}, now)
}

func (p *Poster) PostHoldRelease(ctx context.Context, tx store.Tx, version *domain.PolicyVersion, req domain.Request, now time.Time) (bool, error) {
	return p.Post(ctx, tx, PostInput{
		CompanyID: req.CompanyID, EmployeeID: req.EmployeeID, PolicyID: req.PolicyID,
		PolicyVersionID: versionID(version), EntryType: domain.EntryHoldRelease, Magnitude: req.RequestedMinutes,
		EffectiveAt: now, SourceType: domain.SourceRequest, SourceID: req.ID.String(),
	}, now)
}

func (p *Poster) PostUsage(ctx context.Context, tx store.Tx, version *domain.PolicyVersion, req domain.Request, now time.Time) (bool, error) {
	return p.Post(ctx, tx, PostInput{
		CompanyID: req.CompanyID, EmployeeID: req.EmployeeID, PolicyID: req.PolicyID,
		PolicyVersionID: versionID(version), EntryType: domain.EntryUsage, Magnitude: req.RequestedMinutes,
		EffectiveAt: now, SourceType: domain.SourceRequest, SourceID: req.ID.String(),
	}, now)
}

func versionID(v *domain.PolicyVersion) domain.PolicyVersionID {
	if v == nil {
		return domain.PolicyVersionID{}
	}
	return v.ID
}
