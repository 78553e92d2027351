/*
Package generic provides the domain-agnostic building blocks of the engine.

PURPOSE:
  This package contains the pieces every domain package leans on: money
  arithmetic, time and period handling, the error taxonomy, the key-value
  persistence contract and the tick source. It knows nothing about work
  sessions or certifications; worktime/ and certification/ build on it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal helpers (never float64 for currency)
  - Minutes: whole elapsed minutes between two instants

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Determinism: Time always comes from a Clock, never time.Now() directly
  3. Explicit failure: Every I/O path returns an error, nothing is dropped

USAGE:
  wage := generic.MustParseDecimal("1875")
  income := generic.MinuteIncome(wage, 480) // 15000

SEE ALSO:
  - time.go: Clock and calendar helpers
  - period.go: Statistics periods (today, week, month, all)
  - store.go: Key-value persistence interface
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal helpers
// =============================================================================

var (
	minutesPerHour = decimal.NewFromInt(60)
	monthsPerYear  = decimal.NewFromInt(12)
)

// MustParseDecimal parses s or returns zero on malformed input.
// Intended for constants and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Dec converts an int to a decimal.
func Dec(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// MinuteWage is hourly / 60.
func MinuteWage(hourly decimal.Decimal) decimal.Decimal {
	return hourly.Div(minutesPerHour)
}

// MinuteIncome returns minutes * hourly / 60.
// Multiplying before dividing keeps exact results for wages not divisible by 60.
func MinuteIncome(hourly decimal.Decimal, minutes int) decimal.Decimal {
	return hourly.Mul(Dec(minutes)).Div(minutesPerHour)
}

// Annualize returns a monthly figure times 12.
func Annualize(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(monthsPerYear)
}

// =============================================================================
// ELAPSED TIME
// =============================================================================

// Minutes returns floor((end - start) in minutes). Negative spans yield 0.
func Minutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Seconds returns floor((end - start) in seconds). Negative spans yield 0.
func Seconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
