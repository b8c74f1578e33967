package httpapi

import (
	"net/http"

	"github.com/dayledger/pto/internal/directory"
)

// employeeWriter is satisfied by directory.MemoryDirectory; production
// deployments back EmployeeDirectory with a read-only HR integration, so the
// PUT handler answers with an internal error when the injected directory does
// not implement it.
type employeeWriter interface {
	PutEmployee(*directory.Employee)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
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
	e, err := s.Employees.Get(r.Context(), cid, eid)
	if err != nil {
		writeError(w, err)
		return
	}
	if e == nil {
		writeError(w, notFoundErr("employee not found"))
		return
	}
	writeJSON(w, http.StatusOK, employeeDTO(e))
}

func (s *Server) putEmployee(w http.ResponseWriter, r *http.Request) {
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
	eid, err := pathEmployeeID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writer, ok := s.Employees.(employeeWriter)
	if !ok {
		writeError(w, internalErr("employee directory does not support writes"))
		return
	}
	var req PutEmployeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e := &directory.Employee{
		ID: eid, CompanyID: cid, FirstName: req.FirstName, LastName: req.LastName,
		Email: req.Email, PayType: req.PayType, WorkdayMinutes: req.WorkdayMinutes, Timezone: req.Timezone,
	}
	if req.HireDate != nil && *req.HireDate != "" {
		d, err := parseCivilDateParam(*req.HireDate)
		if err != nil {
			writeError(w, err)
			return
		}
		e.HireDate = &d
	}
	writer.PutEmployee(e)
	writeJSON(w, http.StatusOK, employeeDTO(e))
}
