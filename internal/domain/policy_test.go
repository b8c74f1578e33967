package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayledger/pto/internal/domain"
)

func TestSettingsValidateUnlimitedRequiresNothing(t *testing.T) {
	s := domain.Settings{Unit: "MINUTES"}
	require.NoError(t, s.Validate(domain.PolicyUnlimited, nil))
}

func TestSettingsValidateAccrualTimeRequiresMatchingRate(t *testing.T) {
	method := domain.AccrualTime
	s := domain.Settings{AccrualFrequency: domain.FrequencyDaily, AccrualTiming: domain.TimingEndOfPeriod}
	require.Error(t, s.Validate(domain.PolicyAccrual, &method), "DAILY frequency with no rate_minutes_per_day must fail")

	rate := int64(32)
	s.RateMinutesPerDay = &rate
	require.NoError(t, s.Validate(domain.PolicyAccrual, &method))
}

func TestSettingsValidateHoursWorkedRequiresRatio(t *testing.T) {
	method := domain.AccrualHoursWorked
	s := domain.Settings{}
	require.Error(t, s.Validate(domain.PolicyAccrual, &method))

	s.AccrualRatio = &domain.AccrualRatio{AccrueMinutes: 1, PerWorkedMinutes: 40}
	require.NoError(t, s.Validate(domain.PolicyAccrual, &method))
}

func TestSettingsValidateRejectsNegativeCarryoverExpiration(t *testing.T) {
	method := domain.AccrualTime
	rate := int64(10)
	negative := -5
	s := domain.Settings{
		AccrualFrequency:  domain.FrequencyDaily,
		AccrualTiming:     domain.TimingEndOfPeriod,
		RateMinutesPerDay: &rate,
		Carryover:         domain.CarryoverRule{Enabled: true, ExpiresAfterDays: &negative},
	}
	require.Error(t, s.Validate(domain.PolicyAccrual, &method))
}

func TestRateForTenureSelectsHighestMatchingTier(t *testing.T) {
	s := domain.Settings{
		TenureTiers: []domain.TenureTier{
			{MinMonths: 0, AccrualRateMinutes: 20},
			{MinMonths: 12, AccrualRateMinutes: 30},
			{MinMonths: 60, AccrualRateMinutes: 40},
		},
	}
	require.Equal(t, int64(20), s.RateForTenure(0))
	require.Equal(t, int64(30), s.RateForTenure(13))
	require.Equal(t, int64(40), s.RateForTenure(61))
}

func TestPolicyVersionCoversDate(t *testing.T) {
	from := domain.NewCivilDate(2025, time.January, 1)
	to := domain.NewCivilDate(2026, time.January, 1)
	v := domain.PolicyVersion{EffectiveFrom: from, EffectiveTo: &to}

	require.True(t, v.CoversDate(domain.NewCivilDate(2025, time.June, 15)))
	require.False(t, v.CoversDate(domain.NewCivilDate(2024, time.December, 31)))
	require.False(t, v.CoversDate(to), "EffectiveTo is exclusive")

	current := domain.PolicyVersion{EffectiveFrom: from}
	require.True(t, current.IsCurrent())
	require.True(t, current.CoversDate(domain.NewCivilDate(2099, time.January, 1)))
}
