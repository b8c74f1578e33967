/*
Package directory defines the two read-only external collaborators the core
consumes: the Employee and Company directories (spec §1, §6). Both are
specified only by their read interfaces - nothing in this package persists
anything; real deployments back these with whatever HR/identity system of
record the company already has.

The spec's DESIGN NOTES call out "global mutable directories" as a anti-
pattern to avoid: the teacher's generic package used a process-wide
sync.RWMutex-guarded registry for resource types (generic/resource.go). Here
both directories are plain interface values, injected at service
construction, with an in-memory implementation for local runs and tests -
never a package-level singleton.
*/
package directory

import (
	"context"
	"time"

	"github.com/dayledger/pto/internal/domain"
)

// Employee is an employee's directory record; the duration calculator and
// accrual engine read its schedule fields and hire date.
type Employee struct {
	ID              domain.EmployeeID
	CompanyID       domain.CompanyID
	FirstName       string
	LastName        string
	Email           string
	PayType         string
	WorkdayMinutes  int
	Timezone        string // IANA zone name, e.g. "America/New_York"
	HireDate        *domain.CivilDate
}

type Company struct {
	ID                    domain.CompanyID
	Name                  string
	Timezone              string
	DefaultWorkdayMinutes int
}

// EmployeeDirectory is the read interface the core consumes. Get returns
// (nil, nil) - not an error - when the employee doesn't exist, mirroring the
// spec's "{...} | null" return shape.
type EmployeeDirectory interface {
	Get(ctx context.Context, company domain.CompanyID, employee domain.EmployeeID) (*Employee, error)
	List(ctx context.Context, company domain.CompanyID) ([]*Employee, error)
}

// CompanyDirectory is presently unused by the core write paths; reserved
// for future scheduling refinements (spec §6).
type CompanyDirectory interface {
	Get(ctx context.Context, company domain.CompanyID) (*Company, error)
}

// DefaultWorkdayMinutes and DefaultTimezone are the duration calculator's
// fallback schedule when the directory has no record for an employee
// (spec §4.4 step 1).
const (
	DefaultWorkdayMinutes = 480
	DefaultTimezone       = "UTC"
)

// ResolveSchedule applies the default-schedule fallback.
func ResolveSchedule(e *Employee) (workdayMinutes int, loc *time.Location) {
	if e == nil {
		l, _ := time.LoadLocation(DefaultTimezone)
		return DefaultWorkdayMinutes, l
	}
	wm := e.WorkdayMinutes
	if wm <= 0 {
		wm = DefaultWorkdayMinutes
	}
	tz := e.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	l, err := time.LoadLocation(tz)
	if err != nil {
		l, _ = time.LoadLocation(DefaultTimezone)
	}
	return wm, l
}
