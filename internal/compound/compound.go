// Package compound holds the closed-form interest math used by the price
// model and exposed to players as a calculator.
package compound

import "math"

// DaysPerYear is the number of ticks that make up one simulated year.
const DaysPerYear = 365

// FutureValue returns principal * (1 + rate/n)^(n*years).
// A compounding frequency below one is treated as annual compounding.
func FutureValue(principal, rate float64, compoundsPerYear int, years float64) float64 {
	if principal == 0 {
		return 0
	}
	if rate == 0 {
		return principal
	}
	n := float64(compoundsPerYear)
	if compoundsPerYear < 1 {
		n = 1
	}
	return principal * math.Pow(1+rate/n, n*years)
}

// SimpleValue returns principal * (1 + rate*years).
func SimpleValue(principal, rate, years float64) float64 {
	return principal * (1 + rate*years)
}

// TotalInterestEarned is the compound growth on top of the principal.
func TotalInterestEarned(principal, rate float64, compoundsPerYear int, years float64) float64 {
	return FutureValue(principal, rate, compoundsPerYear, years) - principal
}

// CompoundingAdvantage is how much more compound interest earns than simple
// interest over the same period. It never goes below zero.
func CompoundingAdvantage(principal, rate float64, compoundsPerYear int, years float64) float64 {
	diff := FutureValue(principal, rate, compoundsPerYear, years) - SimpleValue(principal, rate, years)
	if diff < 0 {
		return 0
	}
	return diff
}

// YearsToDouble returns ln(2)/ln(1+rate), or +Inf when the rate cannot double
// the principal.
func YearsToDouble(rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return math.Ln2 / math.Log1p(rate)
}

// RuleOf72 is the mental-math approximation of YearsToDouble.
func RuleOf72(rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return 72 / (rate * 100)
}

// TicksToYears converts discrete game ticks into fractional years.
func TicksToYears(ticks, ticksPerYear int) float64 {
	if ticksPerYear <= 0 {
		return 0
	}
	return float64(ticks) / float64(ticksPerYear)
}

// DailyRate is the per-tick rate that compounds to annualRate over one year.
func DailyRate(annualRate float64) float64 {
	return math.Pow(1+annualRate, 1.0/DaysPerYear) - 1
}

// ExpectedPrice is base compounded annually at annualRate for the given
// number of elapsed days.
func ExpectedPrice(base, annualRate float64, days int) float64 {
	return FutureValue(base, annualRate, 1, TicksToYears(days, DaysPerYear))
}
