package httpapi

import (
	"net/http"
	"time"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/requestservice"
	"github.com/dayledger/pto/internal/store"
)

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	var req SubmitRequestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	policyID, err := domain.ParsePolicyID(req.PolicyID)
	if err != nil {
		writeError(w, validationErr("malformed policy_id"))
		return
	}
	ident := identityFrom(r)
	emp, err := s.Employees.Get(r.Context(), cid, ident.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	_, loc := directory.ResolveSchedule(emp)
	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		startAt, err = time.ParseInLocation("2006-01-02T15:04:05", req.StartAt, loc)
	}
	if err != nil {
		writeError(w, validationErr("start_at must be RFC3339 or YYYY-MM-DDTHH:MM:SS"))
		return
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		endAt, err = time.ParseInLocation("2006-01-02T15:04:05", req.EndAt, loc)
	}
	if err != nil {
		writeError(w, validationErr("end_at must be RFC3339 or YYYY-MM-DDTHH:MM:SS"))
		return
	}
	out, err := s.Request.Submit(r.Context(), requestservice.SubmitInput{
		CompanyID: cid, EmployeeID: ident.UserID, PolicyID: policyID,
		StartAt: startAt, EndAt: endAt, Reason: req.Reason, IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestDTO(*out))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
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
	f := store.RequestFilter{CompanyID: cid, Offset: offset, Limit: limit}
	if v := r.URL.Query().Get("employee_id"); v != "" {
		eid, err := domain.ParseEmployeeID(v)
		if err != nil {
			writeError(w, validationErr("malformed employee_id"))
			return
		}
		f.EmployeeID = &eid
	}
	if v := r.URL.Query().Get("policy_id"); v != "" {
		pid, err := domain.ParsePolicyID(v)
		if err != nil {
			writeError(w, validationErr("malformed policy_id"))
			return
		}
		f.PolicyID = &pid
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := domain.RequestStatus(v)
		f.Status = &st
	}
	ident := identityFrom(r)
	if ident.Role != domain.RoleAdmin {
		f.EmployeeID = &ident.UserID
	}
	out, err := s.Request.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]RequestDTO, 0, len(out))
	for _, rq := range out {
		dtos = append(dtos, requestDTO(rq))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathRequestID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.Request.Get(r.Context(), cid, rid)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	if ident.Role != domain.RoleAdmin && ident.UserID != out.EmployeeID {
		writeError(w, forbiddenErr("cannot view another employee's request"))
		return
	}
	writeJSON(w, http.StatusOK, requestDTO(*out))
}

func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
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
	rid, err := pathRequestID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req DecideRequestRequest
	_ = decodeBody(r, &req)
	ident := identityFrom(r)
	out, err := s.Request.Approve(r.Context(), cid, rid, ident.UserID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestDTO(*out))
}

func (s *Server) denyRequest(w http.ResponseWriter, r *http.Request) {
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
	rid, err := pathRequestID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req DecideRequestRequest
	_ = decodeBody(r, &req)
	ident := identityFrom(r)
	out, err := s.Request.Deny(r.Context(), cid, rid, ident.UserID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestDTO(*out))
}

func (s *Server) cancelRequest(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	rid, err := pathRequestID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req DecideRequestRequest
	_ = decodeBody(r, &req)
	ident := identityFrom(r)
	out, err := s.Request.Cancel(r.Context(), cid, rid, ident.UserID, ident.Role, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestDTO(*out))
}

func (s *Server) createAdjustment(w http.ResponseWriter, r *http.Request) {
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
	var req AdjustmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	employeeID, err := domain.ParseEmployeeID(req.EmployeeID)
	if err != nil {
		writeError(w, validationErr("malformed employee_id"))
		return
	}
	policyID, err := domain.ParsePolicyID(req.PolicyID)
	if err != nil {
		writeError(w, validationErr("malformed policy_id"))
		return
	}
	ident := identityFrom(r)
	if err := s.Request.Adjust(r.Context(), requestservice.AdjustInput{
		CompanyID: cid, EmployeeID: employeeID, PolicyID: policyID,
		AmountMinutes: req.AmountMinutes, Reason: req.Reason, ActorID: ident.UserID,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
