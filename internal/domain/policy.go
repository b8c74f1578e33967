/*
policy.go - Policy and PolicyVersion, the versioned ruleset that governs a
balance's behavior.

A Policy is just a (company, key, category) identity. All the interesting
behavior lives in its PolicyVersion chain: every update to a policy ends the
current version (effective_to = new.effective_from) and inserts a new one
numbered current.version+1 with effective_to = NULL. The version with
effective_to = NULL is always the "current" one (I7).

Settings is a tagged union discriminated by (Type, AccrualMethod), kept as a
plain Go struct with optional fields rather than an interface, because it is
stored as a single JSON document in the version row (see DESIGN NOTES in the
spec: "schema evolution requires no migrations - readers negotiate the tag
at decode time"). Validate() enforces which fields are required for which
tag, the same dispatch-on-tag discipline the original's
`app/schemas/policy.py` pydantic discriminated union enforces at the API
boundary.
*/
package domain

import "github.com/dayledger/pto/internal/apperr"

// Policy is the durable (company, key, category) identity. Uniqueness:
// (company_id, key).
type Policy struct {
	ID        PolicyID
	CompanyID CompanyID
	Key       string
	Category  string
	CreatedAt CivilDate
}

// PolicyVersion is immutable once created except for the single end-dating
// mutation applied when it is superseded. Uniqueness: (policy_id, version).
type PolicyVersion struct {
	ID             PolicyVersionID
	PolicyID       PolicyID
	Version        int
	EffectiveFrom  CivilDate
	EffectiveTo    *CivilDate // nil => this is the current version
	Type           PolicyType
	AccrualMethod  *AccrualMethod // set iff Type == PolicyAccrual
	Settings       Settings
	CreatedBy      EmployeeID
	ChangeReason   string
	CreatedAt      CivilDate
}

// IsCurrent reports whether this is the head of the version chain.
func (v PolicyVersion) IsCurrent() bool { return v.EffectiveTo == nil }

// CoversDate reports whether d falls in this version's half-open
// [EffectiveFrom, EffectiveTo) interval.
func (v PolicyVersion) CoversDate(d CivilDate) bool {
	if d.Before(v.EffectiveFrom) {
		return false
	}
	if v.EffectiveTo != nil && !d.Before(*v.EffectiveTo) {
		return false
	}
	return true
}

// TenureTier overrides the base accrual rate once tenure reaches MinMonths.
type TenureTier struct {
	MinMonths          int   `json:"min_months"`
	AccrualRateMinutes int64 `json:"accrual_rate_minutes"`
}

// CarryoverRule governs the Jan 1 carryover engine (spec §4.11).
type CarryoverRule struct {
	Enabled          bool   `json:"enabled"`
	CapMinutes       *int64 `json:"cap_minutes,omitempty"`
	ExpiresAfterDays *int   `json:"expires_after_days,omitempty"`
}

// ExpirationRule governs the calendar-date clause of the expiration engine
// (spec §4.12). The post-carryover clause is driven by CarryoverRule's
// ExpiresAfterDays field instead.
type ExpirationRule struct {
	Enabled        bool `json:"enabled"`
	ExpiresOnMonth *int `json:"expires_on_month,omitempty"`
	ExpiresOnDay   *int `json:"expires_on_day,omitempty"`
}

// AccrualRatio is the HOURS_WORKED conversion: AccrueMinutes credited for
// every PerWorkedMinutes of reported work.
type AccrualRatio struct {
	AccrueMinutes    int64 `json:"accrue_minutes"`
	PerWorkedMinutes int64 `json:"per_worked_minutes"`
}

// Settings is the tagged union embedded in a PolicyVersion. Which fields
// apply is determined by the version's (Type, AccrualMethod):
//
//	UNLIMITED                     -> only Unit is meaningful
//	ACCRUAL / TIME                -> AccrualFrequency, AccrualTiming, the
//	                                  matching RateMinutesPer*, Proration
//	ACCRUAL / HOURS_WORKED        -> AccrualRatio
//
// AllowNegative, NegativeLimitMinutes, BankCapMinutes, TenureTiers,
// Carryover and Expiration apply to both ACCRUAL methods.
type Settings struct {
	Unit string `json:"unit,omitempty"`

	AccrualFrequency    AccrualFrequency `json:"accrual_frequency,omitempty"`
	AccrualTiming       AccrualTiming    `json:"accrual_timing,omitempty"`
	RateMinutesPerDay   *int64           `json:"rate_minutes_per_day,omitempty"`
	RateMinutesPerMonth *int64           `json:"rate_minutes_per_month,omitempty"`
	RateMinutesPerYear  *int64           `json:"rate_minutes_per_year,omitempty"`
	Proration           Proration        `json:"proration,omitempty"`

	AccrualRatio *AccrualRatio `json:"accrual_ratio,omitempty"`

	AllowNegative        bool         `json:"allow_negative"`
	NegativeLimitMinutes *int64       `json:"negative_limit_minutes,omitempty"`
	BankCapMinutes       *int64       `json:"bank_cap_minutes,omitempty"`
	TenureTiers          []TenureTier `json:"tenure_tiers,omitempty"`

	Carryover  CarryoverRule  `json:"carryover"`
	Expiration ExpirationRule `json:"expiration"`
}

// BaseRateMinutes returns the un-prorated, un-tiered rate for the version's
// configured frequency. Only meaningful for ACCRUAL/TIME.
func (s Settings) BaseRateMinutes() int64 {
	switch s.AccrualFrequency {
	case FrequencyDaily:
		if s.RateMinutesPerDay != nil {
			return *s.RateMinutesPerDay
		}
	case FrequencyMonthly:
		if s.RateMinutesPerMonth != nil {
			return *s.RateMinutesPerMonth
		}
	case FrequencyYearly:
		if s.RateMinutesPerYear != nil {
			return *s.RateMinutesPerYear
		}
	}
	return 0
}

// RateForTenure resolves the effective rate given months of tenure: among
// tiers with MinMonths <= months, the one with the largest MinMonths wins;
// absent any matching tier, the base rate applies (spec §4.9.c).
func (s Settings) RateForTenure(months int) int64 {
	if len(s.TenureTiers) == 0 {
		return s.BaseRateMinutes()
	}
	best, found := TenureTier{MinMonths: -1}, false
	for _, tier := range s.TenureTiers {
		if tier.MinMonths <= months && tier.MinMonths > best.MinMonths {
			best = tier
			found = true
		}
	}
	if !found {
		return s.BaseRateMinutes()
	}
	return best.AccrualRateMinutes
}

// Validate enforces the discriminated-union shape required by (typ, method).
func (s Settings) Validate(typ PolicyType, method *AccrualMethod) error {
	if typ == PolicyUnlimited {
		return nil
	}
	if typ != PolicyAccrual || method == nil {
		return apperr.Validation("accrual policy requires an accrual_method")
	}
	switch *method {
	case AccrualTime:
		switch s.AccrualFrequency {
		case FrequencyDaily:
			if s.RateMinutesPerDay == nil {
				return apperr.Validation("DAILY frequency requires rate_minutes_per_day")
			}
		case FrequencyMonthly:
			if s.RateMinutesPerMonth == nil {
				return apperr.Validation("MONTHLY frequency requires rate_minutes_per_month")
			}
		case FrequencyYearly:
			if s.RateMinutesPerYear == nil {
				return apperr.Validation("YEARLY frequency requires rate_minutes_per_year")
			}
		default:
			return apperr.Validation("invalid accrual_frequency")
		}
		if s.AccrualTiming != TimingStartOfPeriod && s.AccrualTiming != TimingEndOfPeriod {
			return apperr.Validation("invalid accrual_timing")
		}
	case AccrualHoursWorked:
		if s.AccrualRatio == nil || s.AccrualRatio.PerWorkedMinutes <= 0 {
			return apperr.Validation("hours_worked accrual requires accrual_ratio")
		}
	default:
		return apperr.Validation("invalid accrual_method")
	}
	if s.Carryover.Enabled && s.Carryover.ExpiresAfterDays != nil && *s.Carryover.ExpiresAfterDays < 0 {
		return apperr.Validation("carryover.expires_after_days must be non-negative")
	}
	if s.Expiration.Enabled {
		if s.Expiration.ExpiresOnMonth == nil || s.Expiration.ExpiresOnDay == nil {
			return apperr.Validation("expiration requires expires_on_month and expires_on_day")
		}
	}
	return nil
}
