package httpapi

import (
	"net/http"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/accrualservice"
)

// triggerAccrual implements the admin backfill endpoint (spec §4.13): an
// out-of-band way to run the time-based accrual engine for one tenant for a
// given date, independent of the worker's daily tick.
func (s *Server) triggerAccrual(w http.ResponseWriter, r *http.Request) {
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
	targetParam := r.URL.Query().Get("date")
	target, err := parseCivilDateParam(targetParam)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Accrual.RunTimeBased(r.Context(), target, &cid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engineResultDTO(res))
}

func engineResultDTO(res accrualservice.Result) EngineResultDTO {
	return EngineResultDTO{Processed: res.Processed, Accrued: res.Accrued, Skipped: res.Skipped, Errors: res.Errors}
}

// payrollWebhook implements the payroll_processed webhook (spec §4.10): it
// is body-scoped to a tenant rather than header-scoped, since the caller is
// an external payroll system rather than an authenticated client of this
// API.
func (s *Server) payrollWebhook(w http.ResponseWriter, r *http.Request) {
	var req PayrollWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cid, err := domain.ParseCompanyID(req.CompanyID)
	if err != nil {
		writeError(w, validationErr("malformed company_id"))
		return
	}
	periodEnd, err := parseCivilDateParam(req.PeriodEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := make([]accrualservice.PayrollEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		eid, err := domain.ParseEmployeeID(e.EmployeeID)
		if err != nil {
			writeError(w, validationErr("malformed employee_id in payroll entry"))
			return
		}
		entries = append(entries, accrualservice.PayrollEntry{EmployeeID: eid, WorkedMinutes: e.WorkedMinutes})
	}
	res, err := s.Accrual.ProcessPayroll(r.Context(), cid, req.PayrollRunID, periodEnd, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engineResultDTO(res))
}
