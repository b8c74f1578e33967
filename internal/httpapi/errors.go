/*
errors.go - the single boundary handler (spec §7): translates an
*apperr.Error's Kind to the {error, detail?, status_code} body and the
matching HTTP status. Nothing upstream of writeError knows about status
codes, mirroring the teacher's IsRetryable/IsClientError sentinel-checking
helpers in generic/errors.go but collapsed to one switch.
*/
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dayledger/pto/internal/apperr"
)

type errorBody struct {
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"status_code"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBusinessRule:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Printf("[httpapi] internal error: %v", err)
	}
	detail := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		detail = appErr.Detail
	}
	writeJSON(w, status, errorBody{Error: string(kind), Detail: detail, StatusCode: status})
}

func validationErr(detail string) *apperr.Error { return apperr.Validation(detail) }
func forbiddenErr(detail string) *apperr.Error   { return apperr.Forbidden(detail) }
func notFoundErr(detail string) *apperr.Error    { return apperr.NotFound(detail) }
func internalErr(detail string) *apperr.Error    { return apperr.Internal(detail, nil) }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[httpapi] failed encoding response body: %v", err)
	}
}
