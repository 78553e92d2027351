/*
Package worktime implements work-session timing and compensation.

PURPOSE:
  Times work sessions and converts elapsed time into earned income using
  the worker's wage configuration. Minutes beyond the scheduled daily hours
  are overtime, classified at the end of the session as either paid
  overtime (income) or service overtime (unpaid, tracked as a loss).

KEY CONCEPTS:
  - WageConfig: salary, overtime multiplier and scheduled hours
  - WorkSession: one timed interval plus its derived earnings
  - SessionLedger: completed history plus the single active session
  - Engine: the session timer (start, tick, end, resume)

LIFECYCLE:
  Idle --StartWork--> Active --EndWork(paid)-----> Completed
                             --EndWork(service)--> ServiceOvertimeCompleted

  Wage, multiplier and schedule are captured when the session starts, so
  later config edits never alter in-flight or completed sessions.

SEE ALSO:
  - session.go: Earnings partition
  - engine.go: Session timer
  - ledger.go: History and statistics
*/
package worktime

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// WAGE CONFIG - Immutable compensation settings
// =============================================================================

// Bounds enforced by Validate.
const (
	MinDailyWorkHours   = 1
	MaxDailyWorkHours   = 16
	MaxMonthlyWorkHours = 744 // 31 * 24
)

var (
	maxMonthlySalary = decimal.NewFromInt(100_000_000)
	maxHourlySalary  = decimal.NewFromInt(1_000_000)
	minMultiplier    = decimal.NewFromInt(1)
)

// WageConfig describes how time converts into money.
// StartHour and EndHour are nominal shift boundaries; the timer does not enforce them.
type WageConfig struct {
	MonthlySalary      decimal.Decimal
	HourlySalary       decimal.Decimal
	OvertimeMultiplier decimal.Decimal
	MonthlyWorkHours   int
	DailyWorkHours     int
	StartHour          int
	EndHour            int
}

// DefaultWageConfig is used until the worker saves settings.
func DefaultWageConfig() WageConfig {
	return WageConfig{
		MonthlySalary:      decimal.NewFromInt(300000),
		HourlySalary:       decimal.NewFromInt(1875),
		OvertimeMultiplier: generic.MustParseDecimal("1.25"),
		MonthlyWorkHours:   160,
		DailyWorkHours:     8,
		StartHour:          9,
		EndHour:            18,
	}
}

// ScheduledDailyMinutes is DailyWorkHours * 60.
func (c WageConfig) ScheduledDailyMinutes() int { return c.DailyWorkHours * 60 }

// Validate checks every field against its documented range.
func (c WageConfig) Validate() error {
	switch {
	case !c.MonthlySalary.IsPositive() || c.MonthlySalary.GreaterThan(maxMonthlySalary):
		return &generic.ValidationError{Field: "monthly_salary", Message: fmt.Sprintf("must be in (0, %s]", maxMonthlySalary)}
	case !c.HourlySalary.IsPositive() || c.HourlySalary.GreaterThan(maxHourlySalary):
		return &generic.ValidationError{Field: "hourly_salary", Message: fmt.Sprintf("must be in (0, %s]", maxHourlySalary)}
	case c.OvertimeMultiplier.LessThan(minMultiplier):
		return &generic.ValidationError{Field: "overtime_multiplier", Message: "must be >= 1.0"}
	case c.MonthlyWorkHours <= 0 || c.MonthlyWorkHours > MaxMonthlyWorkHours:
		return &generic.ValidationError{Field: "monthly_work_hours", Message: fmt.Sprintf("must be in 1..%d", MaxMonthlyWorkHours)}
	case c.DailyWorkHours < MinDailyWorkHours || c.DailyWorkHours > MaxDailyWorkHours:
		return &generic.ValidationError{Field: "daily_work_hours", Message: fmt.Sprintf("must be in %d..%d", MinDailyWorkHours, MaxDailyWorkHours)}
	case c.StartHour < 0 || c.StartHour > 23:
		return &generic.ValidationError{Field: "start_hour", Message: "must be in 0..23"}
	case c.EndHour < 0 || c.EndHour > 23:
		return &generic.ValidationError{Field: "end_hour", Message: "must be in 0..23"}
	}
	return nil
}

// WageConfigUpdate carries the fields to change; nil means keep.
type WageConfigUpdate struct {
	MonthlySalary      *decimal.Decimal
	HourlySalary       *decimal.Decimal
	OvertimeMultiplier *decimal.Decimal
	MonthlyWorkHours   *int
	DailyWorkHours     *int
	StartHour          *int
	EndHour            *int
}

// Update returns a new config with u applied. The receiver is never modified;
// on validation failure the zero value and the error are returned.
func (c WageConfig) Update(u WageConfigUpdate) (WageConfig, error) {
	next := c
	if u.MonthlySalary != nil {
		next.MonthlySalary = *u.MonthlySalary
	}
	if u.HourlySalary != nil {
		next.HourlySalary = *u.HourlySalary
	}
	if u.OvertimeMultiplier != nil {
		next.OvertimeMultiplier = *u.OvertimeMultiplier
	}
	if u.MonthlyWorkHours != nil {
		next.MonthlyWorkHours = *u.MonthlyWorkHours
	}
	if u.DailyWorkHours != nil {
		next.DailyWorkHours = *u.DailyWorkHours
	}
	if u.StartHour != nil {
		next.StartHour = *u.StartHour
	}
	if u.EndHour != nil {
		next.EndHour = *u.EndHour
	}
	if err := next.Validate(); err != nil {
		return WageConfig{}, err
	}
	return next, nil
}

// DeriveHourly returns a copy with HourlySalary = MonthlySalary / MonthlyWorkHours.
// Keeping the two salaries consistent is the caller's job; this is the helper for it.
func (c WageConfig) DeriveHourly() WageConfig {
	if c.MonthlyWorkHours > 0 {
		c.HourlySalary = c.MonthlySalary.Div(generic.Dec(c.MonthlyWorkHours)).Round(2)
	}
	return c
}

// DeriveMonthly returns a copy with MonthlySalary = HourlySalary * MonthlyWorkHours.
func (c WageConfig) DeriveMonthly() WageConfig {
	c.MonthlySalary = c.HourlySalary.Mul(generic.Dec(c.MonthlyWorkHours))
	return c
}

// Equal compares decimals by value rather than representation.
func (c WageConfig) Equal(o WageConfig) bool {
	return c.MonthlySalary.Equal(o.MonthlySalary) &&
		c.HourlySalary.Equal(o.HourlySalary) &&
		c.OvertimeMultiplier.Equal(o.OvertimeMultiplier) &&
		c.MonthlyWorkHours == o.MonthlyWorkHours &&
		c.DailyWorkHours == o.DailyWorkHours &&
		c.StartHour == o.StartHour &&
		c.EndHour == o.EndHour
}
