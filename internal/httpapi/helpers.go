package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/domain"
)

func pathCompanyID(r *http.Request) (domain.CompanyID, error) {
	return domain.ParseCompanyID(chi.URLParam(r, "cid"))
}

func pathPolicyID(r *http.Request) (domain.PolicyID, error) {
	return domain.ParsePolicyID(chi.URLParam(r, "pid"))
}

func pathEmployeeID(r *http.Request) (domain.EmployeeID, error) {
	return domain.ParseEmployeeID(chi.URLParam(r, "eid"))
}

func pathAssignmentID(r *http.Request) (domain.AssignmentID, error) {
	return domain.ParseAssignmentID(chi.URLParam(r, "aid"))
}

func pathRequestID(r *http.Request) (domain.RequestID, error) {
	return domain.ParseRequestID(chi.URLParam(r, "rid"))
}

func pathHolidayID(r *http.Request) (domain.HolidayID, error) {
	return domain.ParseHolidayID(chi.URLParam(r, "hid"))
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("malformed request body: " + err.Error())
	}
	return nil
}

func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	return offset, limit
}

func parseCivilDateParam(s string) (domain.CivilDate, error) {
	if s == "" {
		return domain.CivilDate{}, apperr.Validation("date parameter is required")
	}
	return domain.ParseCivilDate(s)
}
