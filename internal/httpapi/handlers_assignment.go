package httpapi

import (
	"context"
	"net/http"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/store"
)

func (s *Server) createAssignment(w http.ResponseWriter, r *http.Request) {
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
	var req CreateAssignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	employeeID, err := domain.ParseEmployeeID(req.EmployeeID)
	if err != nil {
		writeError(w, validationErr("malformed employee_id"))
		return
	}
	effectiveFrom, err := parseCivilDateParam(req.EffectiveFrom)
	if err != nil {
		writeError(w, err)
		return
	}
	var effectiveTo *domain.CivilDate
	if req.EffectiveTo != nil && *req.EffectiveTo != "" {
		d, err := domain.ParseCivilDate(*req.EffectiveTo)
		if err != nil {
			writeError(w, validationErr("malformed effective_to"))
			return
		}
		effectiveTo = &d
	}
	ident := identityFrom(r)
	a, err := s.Assignment.Create(r.Context(), assignmentservice.CreateInput{
		CompanyID: cid, EmployeeID: employeeID, PolicyID: pid,
		EffectiveFrom: effectiveFrom, EffectiveTo: effectiveTo, ActorID: ident.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignmentDTO(*a))
}

func (s *Server) assignmentsByPolicy(w http.ResponseWriter, r *http.Request) {
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
	var out []domain.Assignment
	err = s.Store.RunInTx(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Assignments().ByPolicy(ctx, cid, pid)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, 0, len(out))
	for _, a := range out {
		dtos = append(dtos, assignmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) assignmentsByEmployee(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	eid, err := pathEmployeeID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.Assignment.ByEmployee(r.Context(), cid, eid)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, 0, len(out))
	for _, a := range out {
		dtos = append(dtos, assignmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) endDateAssignment(w http.ResponseWriter, r *http.Request) {
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
	aid, err := pathAssignmentID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	effectiveTo := r.URL.Query().Get("effective_to")
	d, err := parseCivilDateParam(effectiveTo)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	if err := s.Assignment.EndDate(r.Context(), cid, aid, d, ident.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
