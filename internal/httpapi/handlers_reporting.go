package httpapi

import (
	"net/http"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

func (s *Server) auditLog(w http.ResponseWriter, r *http.Request) {
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
	offset, limit := pagination(r)
	f := store.AuditFilter{CompanyID: cid, Offset: offset, Limit: limit}
	if v := r.URL.Query().Get("entity_type"); v != "" {
		f.EntityType = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		a := domain.AuditAction(v)
		f.Action = &a
	}
	out, err := s.Reporting.AuditLog(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]AuditLogDTO, 0, len(out))
	for _, a := range out {
		dtos = append(dtos, auditLogDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) reportBalances(w http.ResponseWriter, r *http.Request) {
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
	asOf := r.URL.Query().Get("as_of")
	var target domain.CivilDate
	if asOf == "" {
		target = domain.CivilDateOf(time.Now(), time.UTC)
	} else {
		target, err = parseCivilDateParam(asOf)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	offset, limit := pagination(r)
	rows, err := s.Reporting.BalanceSummary(r.Context(), cid, target, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	type row struct {
		EmployeeID string      `json:"employee_id"`
		PolicyID   string      `json:"policy_id"`
		PolicyKey  string      `json:"policy_key"`
		Balance    *BalanceDTO `json:"balance,omitempty"`
	}
	out := make([]row, 0, len(rows))
	for _, rr := range rows {
		var b *BalanceDTO
		if rr.Snapshot != nil {
			d := balanceDTO(rr.PolicyID, rr.Snapshot)
			b = &d
		}
		out = append(out, row{EmployeeID: rr.EmployeeID.String(), PolicyID: rr.PolicyID.String(), PolicyKey: rr.PolicyKey, Balance: b})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) reportLedger(w http.ResponseWriter, r *http.Request) {
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
	offset, limit := pagination(r)
	f := store.LedgerListFilter{CompanyID: cid, Offset: offset, Limit: limit}
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
	entries, err := s.Reporting.LedgerExport(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}
