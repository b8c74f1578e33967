package httpapi

import (
	"net/http"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/store"
)

func (s *Server) balances(w http.ResponseWriter, r *http.Request) {
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
	ident := identityFrom(r)
	if ident.Role != domain.RoleAdmin && ident.UserID != eid {
		writeError(w, forbiddenErr("cannot view another employee's balances"))
		return
	}
	snaps, err := s.Snapshot.ListForEmployee(r.Context(), cid, eid)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]BalanceDTO, 0, len(snaps))
	for i := range snaps {
		out = append(out, balanceDTO(snaps[i].PolicyID, &snaps[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) employeeLedger(w http.ResponseWriter, r *http.Request) {
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
	ident := identityFrom(r)
	if ident.Role != domain.RoleAdmin && ident.UserID != eid {
		writeError(w, forbiddenErr("cannot view another employee's ledger"))
		return
	}
	offset, limit := pagination(r)
	f := store.LedgerListFilter{CompanyID: cid, EmployeeID: &eid, Offset: offset, Limit: limit}
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
