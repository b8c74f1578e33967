package httpapi

import "net/http"

func (s *Server) createHoliday(w http.ResponseWriter, r *http.Request) {
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
	var req CreateHolidayRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := parseCivilDateParam(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	h, err := s.Holiday.Create(r.Context(), cid, date, req.Name, ident.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, holidayDTO(*h))
}

func (s *Server) listHolidays(w http.ResponseWriter, r *http.Request) {
	cid, err := pathCompanyID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := requireTenant(r, cid); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.Holiday.List(r.Context(), cid)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(out))
	for _, h := range out {
		dtos = append(dtos, holidayDTO(h))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) deleteHoliday(w http.ResponseWriter, r *http.Request) {
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
	hid, err := pathHolidayID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ident := identityFrom(r)
	if err := s.Holiday.Delete(r.Context(), cid, hid, ident.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
