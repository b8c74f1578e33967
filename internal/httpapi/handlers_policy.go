package httpapi

import (
	"context"
	"net/http"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/store"
)

func (s *Server) createPolicy(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	if err := requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}
	var req CreatePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	effectiveFrom, err := parseCivilDateParam(req.EffectiveFrom)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	policy, version, err := s.Policy.Create(r.Context(), policyservice.CreateInput{
		CompanyID: cid, Key: req.Key, Category: req.Category, Type: req.Type, AccrualMethod: req.AccrualMethod,
		Settings: req.Settings, EffectiveFrom: effectiveFrom, ActorID: ident.UserID, ChangeReason: req.ChangeReason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, policyDTO(*policy, version))
}

func (s *Server) listPolicies(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	offset, limit := pagination(r)
	policies, err := s.Policy.List(r.Context(), cid, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		_, current, err := s.Policy.Get(r.Context(), cid, p.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, policyDTO(p, current))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	pid, err := pathPolicyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	policy, version, err := s.Policy.Get(r.Context(), cid, pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(*policy, version))
}

func (s *Server) updatePolicy(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	if err := requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}
	pid, err := pathPolicyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req UpdatePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	effectiveFrom, err := parseCivilDateParam(req.EffectiveFrom)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	version, err := s.Policy.Update(r.Context(), policyservice.UpdateInput{
		CompanyID: cid, PolicyID: pid, Type: req.Type, AccrualMethod: req.AccrualMethod,
		Settings: req.Settings, EffectiveFrom: effectiveFrom, ActorID: ident.UserID, ChangeReason: req.ChangeReason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyVersionDTO(*version))
}

func (s *Server) policyVersions(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	pid, err := pathPolicyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var versions []domain.PolicyVersion
	err = s.Store.RunInTx(r.Context(), func(ctx context.Context, tx store.Tx) error {
		vs, err := tx.Policies().VersionChain(ctx, pid)
		if err != nil {
			return err
		}
		versions = vs
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]PolicyVersionDTO, 0, len(versions))
	for _, v := range versions {
		out = append(out, policyVersionDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}
