/*
Package duration implements the duration calculator (spec §4.4): it maps a
[start, end) instant range to requested working minutes, honoring the
employee's schedule, the company holiday calendar, and weekends, with a
fixed 09:00 local anchor for the workday window that DST shifts do not move.

GROUNDED ON:
  the teacher's generic/time.go TimePoint/IsWorkdayWithHolidays pair, and the
  original's backend/app/services/duration.py, which walks the same
  day-by-day civil-date loop and intersects a fixed local workday window
  with the requested range.
*/
package duration

import (
	"time"

	"github.com/dayledger/pto/internal/apperr"
	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
)

const workdayStartHour = 9

// HolidayLookup resolves the set of company holidays touching a civil-date
// range; the caller (request/adjustment services) fetches from storage.
type HolidayLookup interface {
	HolidaysBetween(companyID domain.CompanyID, from, to domain.CivilDate) (map[domain.CivilDate]bool, error)
}

// Calculate implements spec §4.4 steps 1-5.
//
// If either startAt or endAt carries no explicit zone information (i.e. the
// caller parsed a naive "YYYY-MM-DDTHH:MM:SS" local datetime string), both
// must be passed already attached to the employee's timezone via
// time.Date(..., loc) - naive request bodies are localized by the HTTP layer
// before reaching this function, exactly per step 2's "interpret both as
// naive local times in the employee's timezone" rule.
func Calculate(companyID domain.CompanyID, emp *directory.Employee, startAt, endAt time.Time, holidays HolidayLookup) (int64, error) {
	if !endAt.After(startAt) {
		return 0, apperr.Validation("end_at must be after start_at")
	}

	_, loc := directory.ResolveSchedule(emp)
	workdayMinutes := directory.DefaultWorkdayMinutes
	if emp != nil && emp.WorkdayMinutes > 0 {
		workdayMinutes = emp.WorkdayMinutes
	}

	start := startAt.In(loc)
	end := endAt.In(loc)

	fromDate := domain.CivilDateOf(start, loc)
	toDate := domain.CivilDateOf(end, loc)

	holidaySet := map[domain.CivilDate]bool{}
	if holidays != nil {
		set, err := holidays.HolidaysBetween(companyID, fromDate, toDate)
		if err != nil {
			return 0, err
		}
		holidaySet = set
	}

	var total int64
	for d := fromDate; !d.After(toDate); d = d.AddDays(1) {
		if d.IsWeekend() || holidaySet[d] {
			continue
		}
		windowStart := time.Date(d.Year(), d.Month(), d.Day(), workdayStartHour, 0, 0, 0, loc)
		windowEnd := windowStart.Add(time.Duration(workdayMinutes) * time.Minute)

		intersectStart := maxTime(windowStart, start)
		intersectEnd := minTime(windowEnd, end)
		if intersectEnd.After(intersectStart) {
			total += int64(intersectEnd.Sub(intersectStart).Minutes())
		}
	}

	if total <= 0 {
		return 0, apperr.BusinessRule("no working time in requested range")
	}
	return total, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
