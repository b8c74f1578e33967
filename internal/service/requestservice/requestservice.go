/*
Package requestservice implements the request workflow (spec §4.7) and the
admin adjustment operation (spec §4.8): the two write paths that mutate a
BalanceSnapshot directly from a synchronous caller rather than from the
worker's daily engines.

Grounded on the teacher's generic/request.go and timeoff/request.go state
machine, adapted from the teacher's interface-dispatched resource lookup to
a settings struct resolved once per call via the current PolicyVersion.
*/
package requestservice

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/duration"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/ledgerservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store      store.Store
	employees  directory.EmployeeDirectory
	audit      *audit.Writer
	poster     *ledgerservice.Poster
	nowFn      func() time.Time
}

func New(s store.Store, employees directory.EmployeeDirectory, a *audit.Writer) *Service {
	return &Service{store: s, employees: employees, audit: a, poster: ledgerservice.New(), nowFn: func() time.Time { return time.Now().UTC() }}
}

type SubmitInput struct {
	CompanyID      domain.CompanyID
	EmployeeID     domain.EmployeeID
	PolicyID       domain.PolicyID
	StartAt        time.Time
	EndAt          time.Time
	Reason         string
	IdempotencyKey string
}

// Submit implements spec §4.7 steps 1-11.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Request, error) {
	now := s.nowFn()
	today := domain.CivilDateOf(now, time.UTC)

	var result *domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		emp, err := s.employees.Get(ctx, in.CompanyID, in.EmployeeID)
		if err != nil {
			return err
		}

		assignment, err := tx.Assignments().ActiveOn(ctx, in.CompanyID, in.EmployeeID, in.PolicyID, today)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperr.BusinessRule("no active assignment for this employee and policy")
		}

		version, err := tx.Policies().CurrentVersion(ctx, in.PolicyID)
		if err != nil {
			return err
		}
		if version == nil {
			return apperr.BusinessRule("policy has no current version")
		}

		requestedMinutes, err := duration.Calculate(in.CompanyID, emp, in.StartAt, in.EndAt, holidayLookup{tx})
		if err != nil {
			return err
		}

		overlapping, err := tx.Requests().OverlappingActive(ctx, in.CompanyID, in.EmployeeID, in.PolicyID, in.StartAt, in.EndAt)
		if err != nil {
			return err
		}
		for _, o := range overlapping {
			if in.IdempotencyKey != "" && o.IdempotencyKey == in.IdempotencyKey {
				existing := o
				result = &existing
				return nil
			}
		}
		if len(overlapping) > 0 {
			return apperr.Conflict("an active request already overlaps this window")
		}

		snap, err := snapshotservice.GetForUpdate(ctx, tx, in.CompanyID, in.EmployeeID, in.PolicyID)
		if err != nil {
			return err
		}
		if version.Type != domain.PolicyUnlimited {
			if err := checkBalanceGate(version.Settings, snap.AvailableMinutes-requestedMinutes); err != nil {
				return err
			}
		}

		req := domain.Request{
			ID:               domain.NewRequestID(),
			CompanyID:        in.CompanyID,
			EmployeeID:       in.EmployeeID,
			PolicyID:         in.PolicyID,
			StartAt:          in.StartAt,
			EndAt:            in.EndAt,
			RequestedMinutes: requestedMinutes,
			Reason:           in.Reason,
			Status:           domain.RequestSubmitted,
			SubmittedAt:      &now,
			IdempotencyKey:   in.IdempotencyKey,
			CreatedAt:        now,
		}
		created, isNew, err := tx.Requests().Create(ctx, req)
		if err != nil {
			return err
		}
		if !isNew {
			result = created
			return nil
		}
		req = *created

		if _, err := s.poster.PostHold(ctx, tx, version, req, now); err != nil {
			return err
		}
		if err := snapshotservice.Apply(ctx, tx, snap, 0, 0, requestedMinutes, now); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx.Audit(), in.CompanyID, in.EmployeeID, "request", req.ID.String(), domain.ActionSubmit, nil, requestAuditDoc(req)); err != nil {
			return err
		}
		result = &req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkBalanceGate(settings domain.Settings, newAvailable int64) error {
	if newAvailable >= 0 {
		return nil
	}
	if !settings.AllowNegative {
		return apperr.BusinessRule("insufficient balance")
	}
	if settings.NegativeLimitMinutes != nil && newAvailable < -*settings.NegativeLimitMinutes {
		return apperr.BusinessRule("exceeds negative balance limit")
	}
	return nil
}

// Approve implements spec §4.7's approve transition.
func (s *Service) Approve(ctx context.Context, companyID domain.CompanyID, requestID domain.RequestID, actorID domain.EmployeeID, note string) (*domain.Request, error) {
	now := s.nowFn()
	var result *domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		req, err := tx.Requests().Get(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("request not found")
		}
		if !req.CanTransitionTo(domain.RequestApproved) {
			return apperr.BusinessRule("request is not in a SUBMITTED state")
		}
		version, err := tx.Policies().CurrentVersion(ctx, req.PolicyID)
		if err != nil {
			return err
		}
		snap, err := snapshotservice.GetForUpdate(ctx, tx, companyID, req.EmployeeID, req.PolicyID)
		if err != nil {
			return err
		}
		before := requestAuditDoc(*req)

		if _, err := s.poster.PostHoldRelease(ctx, tx, version, *req, now); err != nil {
			return err
		}
		if _, err := s.poster.PostUsage(ctx, tx, version, *req, now); err != nil {
			return err
		}
		if err := snapshotservice.Apply(ctx, tx, snap, 0, req.RequestedMinutes, -req.RequestedMinutes, now); err != nil {
			return err
		}

		req.Status = domain.RequestApproved
		req.DecidedAt = &now
		req.DecidedBy = &actorID
		req.DecisionNote = note
		if err := tx.Requests().UpdateStatus(ctx, *req); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx.Audit(), companyID, actorID, "request", req.ID.String(), domain.ActionApprove, before, requestAuditDoc(*req)); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deny and Cancel both release the hold without posting usage; they differ
// only in the terminal status and, for cancel, in who may call it.
func (s *Service) Deny(ctx context.Context, companyID domain.CompanyID, requestID domain.RequestID, actorID domain.EmployeeID, note string) (*domain.Request, error) {
	return s.releaseHold(ctx, companyID, requestID, actorID, note, domain.RequestDenied, domain.ActionDeny)
}

func (s *Service) Cancel(ctx context.Context, companyID domain.CompanyID, requestID domain.RequestID, actorID domain.EmployeeID, actorRole domain.Role, note string) (*domain.Request, error) {
	var result *domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		req, err := tx.Requests().Get(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("request not found")
		}
		if actorRole != domain.RoleAdmin && actorID != req.EmployeeID {
			return apperr.Forbidden("only the request's owner or an admin may cancel it")
		}
		result, err = s.releaseHoldTx(ctx, tx, req, actorID, note, domain.RequestCancelled, domain.ActionCancel)
		return err
	})
	return result, err
}

func (s *Service) releaseHold(ctx context.Context, companyID domain.CompanyID, requestID domain.RequestID, actorID domain.EmployeeID, note string, next domain.RequestStatus, action domain.AuditAction) (*domain.Request, error) {
	var result *domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		req, err := tx.Requests().Get(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("request not found")
		}
		result, err = s.releaseHoldTx(ctx, tx, req, actorID, note, next, action)
		return err
	})
	return result, err
}

func (s *Service) releaseHoldTx(ctx context.Context, tx store.Tx, req *domain.Request, actorID domain.EmployeeID, note string, next domain.RequestStatus, action domain.AuditAction) (*domain.Request, error) {
	now := s.nowFn()
	if !req.CanTransitionTo(next) {
		return nil, apperr.BusinessRule("request is not in a SUBMITTED state")
	}
	version, err := tx.Policies().CurrentVersion(ctx, req.PolicyID)
	if err != nil {
		return nil, err
	}
	snap, err := snapshotservice.GetForUpdate(ctx, tx, req.CompanyID, req.EmployeeID, req.PolicyID)
	if err != nil {
		return nil, err
	}
	before := requestAuditDoc(*req)

	if _, err := s.poster.PostHoldRelease(ctx, tx, version, *req, now); err != nil {
		return nil, err
	}
	if err := snapshotservice.Apply(ctx, tx, snap, 0, 0, -req.RequestedMinutes, now); err != nil {
		return nil, err
	}

	req.Status = next
	req.DecidedAt = &now
	req.DecidedBy = &actorID
	req.DecisionNote = note
	if err := tx.Requests().UpdateStatus(ctx, *req); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, tx.Audit(), req.CompanyID, actorID, "request", req.ID.String(), action, before, requestAuditDoc(*req)); err != nil {
		return nil, err
	}
	return req, nil
}

// AdjustInput is the admin adjustment operation (spec §4.8).
type AdjustInput struct {
	CompanyID     domain.CompanyID
	EmployeeID    domain.EmployeeID
	PolicyID      domain.PolicyID
	AmountMinutes int64
	Reason        string
	ActorID       domain.EmployeeID
}

func (s *Service) Adjust(ctx context.Context, in AdjustInput) error {
	now := s.nowFn()
	today := domain.CivilDateOf(now, time.UTC)
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		assignment, err := tx.Assignments().ActiveOn(ctx, in.CompanyID, in.EmployeeID, in.PolicyID, today)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperr.BusinessRule("no active assignment for this employee and policy")
		}
		version, err := tx.Policies().CurrentVersion(ctx, in.PolicyID)
		if err != nil {
			return err
		}
		if version == nil {
			return apperr.BusinessRule("policy has no current version")
		}

		snap, err := snapshotservice.GetForUpdate(ctx, tx, in.CompanyID, in.EmployeeID, in.PolicyID)
		if err != nil {
			return err
		}
		if version.Type != domain.PolicyUnlimited {
			if err := checkBalanceGate(version.Settings, snap.AvailableMinutes+in.AmountMinutes); err != nil {
				return err
			}
		}

		entryID := domain.NewLedgerEntryID()
		entry := domain.LedgerEntry{
			ID:              entryID,
			CompanyID:       in.CompanyID,
			EmployeeID:      in.EmployeeID,
			PolicyID:        in.PolicyID,
			PolicyVersionID: version.ID,
			EntryType:       domain.EntryAdjustment,
			AmountMinutes:   in.AmountMinutes,
			EffectiveAt:     now,
			SourceType:      domain.SourceAdmin,
			SourceID:        entryID.String(),
			Metadata:        map[string]any{"reason": in.Reason, "adjusted_by": in.ActorID.String()},
			CreatedAt:       now,
		}
		posted, err := tx.Ledger().Post(ctx, entry)
		if err != nil {
			return err
		}
		if !posted {
			return nil
		}
		if err := snapshotservice.Apply(ctx, tx, snap, in.AmountMinutes, 0, 0, now); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), in.CompanyID, in.ActorID, "ledger_entry", entry.ID.String(), domain.ActionCreate, nil, map[string]any{"entry_type": entry.EntryType, "amount_minutes": entry.AmountMinutes, "policy_id": in.PolicyID.String()})
	})
}

func (s *Service) Get(ctx context.Context, companyID domain.CompanyID, id domain.RequestID) (*domain.Request, error) {
	var out *domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Requests().Get(ctx, companyID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, apperr.NotFound("request not found")
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, f store.RequestFilter) ([]domain.Request, error) {
	var out []domain.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Requests().List(ctx, f)
		return err
	})
	return out, err
}

type holidayLookup struct{ tx store.Tx }

func (h holidayLookup) HolidaysBetween(companyID domain.CompanyID, from, to domain.CivilDate) (map[domain.CivilDate]bool, error) {
	return h.tx.Holidays().HolidaysBetween(companyID, from, to)
}

func requestAuditDoc(r domain.Request) map[string]any {
	doc := map[string]any{"status": r.Status, "requested_minutes": r.RequestedMinutes, "start_at": r.StartAt, "end_at": r.EndAt}
	if r.DecidedBy != nil {
		doc["decided_by"] = r.DecidedBy.String()
	}
	return doc
}
