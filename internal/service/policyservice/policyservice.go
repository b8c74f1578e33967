/*
Package policyservice implements the policy service (spec §4.2): creating a
policy with its first PolicyVersion, and updating a policy by end-dating the
current version and inserting the next one - a policy's settings are never
mutated in place.

Grounded on the teacher's generic/policy.go (ResourcePolicy creation and
versioning) and factory/policy.go (constructing a policy from a settings
blob), adapted from the teacher's interface-based ResourceType dispatch to
the plain tagged-union Settings.Validate used throughout this module.
*/
package policyservice

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
	Key           string
	Category      string
	Type          domain.PolicyType
	AccrualMethod *domain.AccrualMethod
	Settings      domain.Settings
	EffectiveFrom domain.CivilDate
	ActorID       domain.EmployeeID
	ChangeReason  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Policy, *domain.PolicyVersion, error) {
	if in.Key == "" {
		return nil, nil, apperr.Validation("key is required")
	}
	if err := in.Settings.Validate(in.Type, in.AccrualMethod); err != nil {
		return nil, nil, err
	}

	var policy domain.Policy
	var version domain.PolicyVersion

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if existing, err := tx.Policies().GetByKey(ctx, in.CompanyID, in.Key); err != nil {
			return err
		} else if existing != nil {
			return apperr.Conflict("policy key already exists")
		}

		policy = domain.Policy{
			ID:        domain.NewPolicyID(),
			CompanyID: in.CompanyID,
			Key:       in.Key,
			Category:  in.Category,
			CreatedAt: in.EffectiveFrom,
		}
		version = domain.PolicyVersion{
			ID:            domain.NewPolicyVersionID(),
			PolicyID:      policy.ID,
			Version:       1,
			EffectiveFrom: in.EffectiveFrom,
			Type:          in.Type,
			AccrualMethod: in.AccrualMethod,
			Settings:      in.Settings,
			CreatedBy:     in.ActorID,
			ChangeReason:  in.ChangeReason,
			CreatedAt:     in.EffectiveFrom,
		}
		if err := tx.Policies().Create(ctx, policy, version); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), in.CompanyID, in.ActorID, "policy", policy.ID.String(), domain.ActionCreate, nil, policyAuditDoc(policy, version))
	})
	if err != nil {
		return nil, nil, err
	}
	return &policy, &version, nil
}

type UpdateInput struct {
	CompanyID     domain.CompanyID
	PolicyID      domain.PolicyID
	Type          domain.PolicyType
	AccrualMethod *domain.AccrualMethod
	Settings      domain.Settings
	EffectiveFrom domain.CivilDate
	ActorID       domain.EmployeeID
	ChangeReason  string
}

// Update end-dates the current version and inserts version N+1, never
// mutating settings in place (spec §4.2 step 2).
func (s *Service) Update(ctx context.Context, in UpdateInput) (*domain.PolicyVersion, error) {
	if err := in.Settings.Validate(in.Type, in.AccrualMethod); err != nil {
		return nil, err
	}

	var next domain.PolicyVersion
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		policy, err := tx.Policies().GetByID(ctx, in.CompanyID, in.PolicyID)
		if err != nil {
			return err
		}
		if policy == nil {
			return apperr.NotFound("policy not found")
		}
		current, err := tx.Policies().CurrentVersion(ctx, in.PolicyID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.Internal("policy has no current version", nil)
		}
		if in.EffectiveFrom.Before(current.EffectiveFrom) {
			return apperr.BusinessRule("effective_from must not precede the current version's effective_from")
		}

		next = domain.PolicyVersion{
			ID:            domain.NewPolicyVersionID(),
			PolicyID:      in.PolicyID,
			Version:       current.Version + 1,
			EffectiveFrom: in.EffectiveFrom,
			Type:          in.Type,
			AccrualMethod: in.AccrualMethod,
			Settings:      in.Settings,
			CreatedBy:     in.ActorID,
			ChangeReason:  in.ChangeReason,
			CreatedAt:     in.EffectiveFrom,
		}
		if err := tx.Policies().EndDateAndInsertVersion(ctx, in.PolicyID, current.ID, in.EffectiveFrom, next); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx.Audit(), in.CompanyID, in.ActorID, "policy_version", next.ID.String(), domain.ActionUpdate, versionAuditDoc(*current), versionAuditDoc(next))
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) Get(ctx context.Context, companyID domain.CompanyID, id domain.PolicyID) (*domain.Policy, *domain.PolicyVersion, error) {
	var policy *domain.Policy
	var current *domain.PolicyVersion
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.Policies().GetByID(ctx, companyID, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound("policy not found")
		}
		policy = p
		v, err := tx.Policies().CurrentVersion(ctx, id)
		if err != nil {
			return err
		}
		current = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return policy, current, nil
}

func (s *Service) List(ctx context.Context, companyID domain.CompanyID, offset, limit int) ([]domain.Policy, error) {
	var out []domain.Policy
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Policies().ListByCompany(ctx, companyID, offset, limit)
		return err
	})
	return out, err
}

func policyAuditDoc(p domain.Policy, v domain.PolicyVersion) map[string]any {
	return map[string]any{"key": p.Key, "category": p.Category, "type": v.Type, "version": v.Version}
}

func versionAuditDoc(v domain.PolicyVersion) map[string]any {
	return map[string]any{"version": v.Version, "effective_from": v.EffectiveFrom.String(), "type": v.Type}
}
