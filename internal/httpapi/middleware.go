/*
middleware.go - the three-header identity middleware (spec §4.15).

Every tenant-scoped route reads X-Company-Id/X-User-Id/X-Role, parses them
into an Identity, and compares the header company to the path's {cid} once
the handler resolves it. Modeled on the teacher's Logger/Recoverer/
RequestID/CORS composition in api/server.go - this package adds one more
link in that chain rather than replacing it.
*/
package httpapi

import (
	"context"
	"net/http"

	"github.com/dayledger/pto/internal/domain"
)

type Identity struct {
	CompanyID domain.CompanyID
	UserID    domain.EmployeeID
	Role      domain.Role
}

type ctxKey int

const identityKey ctxKey = 1

// WithIdentity parses the three identity headers and attaches them to the
// request context. Missing or malformed X-Company-Id/X-User-Id fail the
// request with 422 (schema validation); a missing or unrecognized X-Role
// defaults to "employee" per spec §6.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID, err := domain.ParseCompanyID(r.Header.Get("X-Company-Id"))
		if err != nil {
			writeError(w, validationErr("X-Company-Id header is missing or not a valid UUID"))
			return
		}
		userID, err := domain.ParseEmployeeID(r.Header.Get("X-User-Id"))
		if err != nil {
			writeError(w, validationErr("X-User-Id header is missing or not a valid UUID"))
			return
		}
		role := domain.Role(r.Header.Get("X-Role"))
		if role != domain.RoleAdmin {
			role = domain.RoleEmployee
		}
		ident := Identity{CompanyID: companyID, UserID: userID, Role: role}
		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) Identity {
	ident, _ := r.Context().Value(identityKey).(Identity)
	return ident
}

// requireTenant compares the header's company to the path's {cid}; a
// mismatch is Forbidden regardless of role (spec §4.15).
func requireTenant(r *http.Request, pathCompanyID domain.CompanyID) error {
	if identityFrom(r).CompanyID != pathCompanyID {
		return forbiddenErr("company_id in the identity headers does not match the path")
	}
	return nil
}

func requireAdmin(r *http.Request) error {
	if identityFrom(r).Role != domain.RoleAdmin {
		return forbiddenErr("this operation requires role=admin")
	}
	return nil
}
