/*
server.go - HTTP router and middleware configuration, matching spec.md §6's
endpoint table exactly. Modeled on the teacher's api/server.go middleware
composition (Logger, Recoverer, RequestID, CORS); WithIdentity is added
after that stack to resolve the three identity headers before any handler
runs.
*/
package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/service/accrualservice"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/holidayservice"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/reportingservice"
	"github.com/dayledger/pto/internal/service/requestservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store"
)

// Server bundles every service the HTTP handlers dispatch to.
type Server struct {
	Store       store.Store
	Employees   directory.EmployeeDirectory
	Companies   directory.CompanyDirectory
	Policy      *policyservice.Service
	Assignment  *assignmentservice.Service
	Request     *requestservice.Service
	Snapshot    *snapshotservice.Service
	Accrual     *accrualservice.Service
	Holiday     *holidayservice.Service
	Reporting   *reportingservice.Service
}

func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Company-Id", "X-User-Id", "X-Role"},
		AllowCredentials: true,
	}))

	r.Route("/companies/{cid}", func(r chi.Router) {
		r.Use(WithIdentity)

		r.Route("/policies", func(r chi.Router) {
			r.Post("/", s.createPolicy)
			r.Get("/", s.listPolicies)
			r.Get("/{pid}", s.getPolicy)
			r.Put("/{pid}", s.updatePolicy)
			r.Get("/{pid}/versions", s.policyVersions)
			r.Post("/{pid}/assignments", s.createAssignment)
			r.Get("/{pid}/assignments", s.assignmentsByPolicy)
		})

		r.Delete("/assignments/{aid}", s.endDateAssignment)

		r.Route("/employees/{eid}", func(r chi.Router) {
			r.Get("/", s.getEmployee)
			r.Put("/", s.putEmployee)
			r.Get("/assignments", s.assignmentsByEmployee)
			r.Get("/balances", s.balances)
			r.Get("/ledger", s.employeeLedger)
		})

		r.Post("/adjustments", s.createAdjustment)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", s.submitRequest)
			r.Get("/", s.listRequests)
			r.Get("/{rid}", s.getRequest)
			r.Post("/{rid}/approve", s.approveRequest)
			r.Post("/{rid}/deny", s.denyRequest)
			r.Post("/{rid}/cancel", s.cancelRequest)
		})

		r.Post("/accruals/trigger", s.triggerAccrual)

		r.Route("/holidays", func(r chi.Router) {
			r.Post("/", s.createHoliday)
			r.Get("/", s.listHolidays)
			r.Delete("/{hid}", s.deleteHoliday)
		})

		r.Get("/audit-log", s.auditLog)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/balances", s.reportBalances)
			r.Get("/ledger", s.reportLedger)
		})
	})

	r.Post("/webhooks/payroll_processed", s.payrollWebhook)

	return r
}
