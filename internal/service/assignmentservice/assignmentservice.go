/*
Package assignmentservice implements the assignment service (spec §4.3):
linking an employee to a policy over a half-open civil-date interval, with
invariant I6 (no two assignments for the same (company, employee, policy)
ever overlap) enforced by the store's ActiveOverlapping check inside the
creating transaction.

Grounded on the teacher's generic/assignment.go.
*/
package assignmentservice

import (
	"context"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/store"
)

type Service struct {
	store store.Store
	audit *audit.Writer
}

func New(s store.Store, a *audit.Writer) *Service {
	return &Service{store: s, audit: a}
}

type CreateInput struct {
	CompanyID     domain.CompanyID
	EmployeeID    domain.EmployeeID
	PolicyID      domain.PolicyID
	EffectiveFrom domain.CivilDate
	EffectiveTo   *domain.CivilDate
	ActorID       domain.EmployeeID
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Assignment, error) {
	if in.EffectiveTo != nil && !in.EffectiveTo.After(in.EffectiveFrom) {
		return nil, apperr.Validation("effective_to must be after effective_from")
	}

	a := domain.Assignment{
		ID:            domain.NewAssignmentID(),
		CompanyID:     in.CompanyID,
		EmployeeID:    in.EmployeeID,
		PolicyID:      in.PolicyID,
		EffectiveFrom: in.EffectiveFrom,
		EffectiveTo:   in.EffectiveTo,
		CreatedBy:     in.ActorID,
		CreatedAt:     in.EffectiveFrom,
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		policy, err := tx.Policies().GetByID(ctx, in.CompanyID, in.PolicyID)
		if err != nil {
			return err
		}
		if policy == nil {
			return apperr.NotFound("policy not found")
		}
		overlapping, err := tx.Assignments().ActiveOverlapping(ctx, in.CompanyID, in.EmployeeID, in.PolicyID, in.EffectiveFrom, in.EffectiveTo)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return apperr.Conflict("assignment overlaps an existing assignment for this employee and policy")
		}
		if err := tx.Assignments().Create(ctx, a); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), in.CompanyID, in.ActorID, "assignment", a.ID.String(), domain.ActionCreate, nil, assignmentAuditDoc(a))
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) EndDate(ctx context.Context, companyID domain.CompanyID, id domain.AssignmentID, effectiveTo domain.CivilDate, actorID domain.EmployeeID) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.Assignments().Get(ctx, companyID, id)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound("assignment not found")
		}
		if a.EffectiveTo != nil {
			return apperr.BusinessRule("assignment is already end-dated")
		}
		if effectiveTo.Before(a.EffectiveFrom) {
			return apperr.BusinessRule("effective_to must not precede effective_from")
		}
		before := assignmentAuditDoc(*a)
		if err := tx.Assignments().EndDate(ctx, id, effectiveTo); err != nil {
			return err
		}
		a.EffectiveTo = &effectiveTo
		return s.audit.Record(ctx, tx.Audit(), companyID, actorID, "assignment", id.String(), domain.ActionUpdate, before, assignmentAuditDoc(*a))
	})
}

func (s *Service) ByEmployee(ctx context.Context, companyID domain.CompanyID, employeeID domain.EmployeeID) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Assignments().ByEmployee(ctx, companyID, employeeID)
		return err
	})
	return out, err
}

func assignmentAuditDoc(a domain.Assignment) map[string]any {
	doc := map[string]any{"employee_id": a.EmployeeID.String(), "policy_id": a.PolicyID.String(), "effective_from": a.EffectiveFrom.String()}
	if a.EffectiveTo != nil {
		doc["effective_to"] = a.EffectiveTo.String()
	}
	return doc
}
