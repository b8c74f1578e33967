package domain

import "time"

// CivilDate is a date with no time-of-day or zone component - the unit that
// effective-dating, assignment intervals, and holiday calendars are defined
// in terms of. Two CivilDates compare equal regardless of the zone either
// was constructed from.
type CivilDate struct {
	t time.Time // always normalized to 00:00:00 UTC
}

func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// CivilDateOf truncates an instant to the civil date it falls on in the
// given zone.
func CivilDateOf(instant time.Time, loc *time.Location) CivilDate {
	local := instant.In(loc)
	return NewCivilDate(local.Year(), local.Month(), local.Day())
}

func (d CivilDate) Year() int         { return d.t.Year() }
func (d CivilDate) Month() time.Month { return d.t.Month() }
func (d CivilDate) Day() int          { return d.t.Day() }
func (d CivilDate) Weekday() time.Weekday { return d.t.Weekday() }
func (d CivilDate) IsWeekend() bool   { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d CivilDate) IsZero() bool      { return d.t.IsZero() }

func (d CivilDate) Before(other CivilDate) bool { return d.t.Before(other.t) }
func (d CivilDate) After(other CivilDate) bool  { return d.t.After(other.t) }
func (d CivilDate) Equal(other CivilDate) bool  { return d.t.Equal(other.t) }
func (d CivilDate) BeforeOrEqual(other CivilDate) bool { return !d.After(other) }
func (d CivilDate) AfterOrEqual(other CivilDate) bool  { return !d.Before(other) }

func (d CivilDate) AddDays(n int) CivilDate   { return CivilDate{t: d.t.AddDate(0, 0, n)} }
func (d CivilDate) AddMonths(n int) CivilDate { return CivilDate{t: d.t.AddDate(0, n, 0)} }
func (d CivilDate) AddYears(n int) CivilDate  { return CivilDate{t: d.t.AddDate(n, 0, 0)} }

// StartOfDayIn returns the instant at which this civil date begins in loc.
func (d CivilDate) StartOfDayIn(loc *time.Location) time.Time {
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, loc)
}

// AtUTCMidnight returns the UTC instant conventionally used to store
// system-authored ledger entries keyed by civil date (e.g. accrual,
// carryover, expiration effective_at).
func (d CivilDate) AtUTCMidnight() time.Time {
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, time.UTC)
}

func (d CivilDate) String() string { return d.t.Format("2006-01-02") }

func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, err
	}
	return CivilDate{t: t}, nil
}

// DaysInRange returns the number of civil days in the half-open interval
// [from, to). Used by the accrual engine's proration arithmetic.
func DaysInRange(from, to CivilDate) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func LastDayOfMonth(year int, month time.Month) CivilDate {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return CivilDate{t: t}
}
