/*
Package factory converts between persisted JSON records and domain entities.

PURPOSE:
  Every entity that reaches the key-value store goes through exactly one
  codec here. Decoding is schema-validated: structurally invalid records
  (malformed JSON, missing required fields, values that break the entity's
  invariants) fail with a generic.PersistenceError instead of being patched
  with fallback values.

JSON SCHEMA:
  WageConfig:
    {
      "monthly_salary": "300000",
      "hourly_salary": "1875",          // optional, derived from monthly when absent
      "overtime_multiplier": "1.25",    // optional, default 1.25
      "monthly_work_hours": 160,        // optional, default 160
      "daily_work_hours": 8,
      "start_hour": 9,                  // optional, default 9
      "end_hour": 18                    // optional, default 18
    }

  WorkSession:
    {
      "id": "9b1c...",
      "start_time": "2025-03-10T09:00:00+09:00",
      "end_time": null,                 // null while active
      "scheduled_daily_minutes": 480,
      "hourly_wage": "1875",
      "overtime_multiplier": "1.25",
      "regular_minutes": 0, "overtime_minutes": 0, "service_overtime_minutes": 0,
      "regular_income": "0", "overtime_income": "0", "service_overtime_loss": "0",
      "is_service_overtime": false
    }

  CertificationPlan:
    {
      "id": "...", "name": "AWS SAA", "cost": "50000", "study_hours": 200,
      "company_salary_increase": "10000", "transfer_salary_increase": "30000",
      "created_at": "...", "target_date": "...", "acquired_date": null,
      "status": "planning"
    }

  Decimals are written as JSON strings; numbers are accepted on read.

SEE ALSO:
  - store/gateway.go: Uses these codecs per persisted key
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// WageConfigJSON is the persisted form of worktime.WageConfig.
type WageConfigJSON struct {
	MonthlySalary      *decimal.Decimal `json:"monthly_salary"`
	HourlySalary       *decimal.Decimal `json:"hourly_salary,omitempty"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	MonthlyWorkHours   *int             `json:"monthly_work_hours,omitempty"`
	DailyWorkHours     *int             `json:"daily_work_hours"`
	StartHour          *int             `json:"start_hour,omitempty"`
	EndHour            *int             `json:"end_hour,omitempty"`
}

// WorkSessionJSON is the persisted form of worktime.WorkSession.
type WorkSessionJSON struct {
	ID                     string           `json:"id"`
	StartTime              *time.Time       `json:"start_time"`
	EndTime                *time.Time       `json:"end_time"`
	ScheduledDailyMinutes  *int             `json:"scheduled_daily_minutes"`
	HourlyWage             *decimal.Decimal `json:"hourly_wage"`
	OvertimeMultiplier     *decimal.Decimal `json:"overtime_multiplier"`
	RegularMinutes         int              `json:"regular_minutes"`
	OvertimeMinutes        int              `json:"overtime_minutes"`
	ServiceOvertimeMinutes int              `json:"service_overtime_minutes"`
	RegularIncome          decimal.Decimal  `json:"regular_income"`
	OvertimeIncome         decimal.Decimal  `json:"overtime_income"`
	ServiceOvertimeLoss    decimal.Decimal  `json:"service_overtime_loss"`
	IsServiceOvertime      bool             `json:"is_service_overtime"`
	LunchNotified          bool             `json:"lunch_notified,omitempty"`
}

// PlanJSON is the persisted form of certification.Plan.
type PlanJSON struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name"`
	Cost                   *decimal.Decimal `json:"cost"`
	StudyHours             *int             `json:"study_hours"`
	CompanySalaryIncrease  decimal.Decimal  `json:"company_salary_increase"`
	TransferSalaryIncrease decimal.Decimal  `json:"transfer_salary_increase"`
	CreatedAt              *time.Time       `json:"created_at"`
	TargetDate             *time.Time       `json:"target_date"`
	AcquiredDate           *time.Time       `json:"acquired_date"`
	Status                 string           `json:"status"`
}

// Defaults applied to optional WageConfig fields.
var (
	defaultMultiplier       = generic.MustParseDecimal("1.25")
	defaultMonthlyWorkHours = 160
	defaultStartHour        = 9
	defaultEndHour          = 18
)

// =============================================================================
// WAGE CONFIG
// =============================================================================

func ParseWageConfig(raw []byte) (worktime.WageConfig, error) {
	var j WageConfigJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return worktime.WageConfig{}, decodeError("wage config", err)
	}
	if j.MonthlySalary == nil {
		return worktime.WageConfig{}, missing("wage config", "monthly_salary")
	}
	if j.DailyWorkHours == nil {
		return worktime.WageConfig{}, missing("wage config", "daily_work_hours")
	}

	cfg := worktime.WageConfig{
		MonthlySalary:      *j.MonthlySalary,
		OvertimeMultiplier: valueOr(j.OvertimeMultiplier, defaultMultiplier),
		MonthlyWorkHours:   valueOr(j.MonthlyWorkHours, defaultMonthlyWorkHours),
		DailyWorkHours:     *j.DailyWorkHours,
		StartHour:          valueOr(j.StartHour, defaultStartHour),
		EndHour:            valueOr(j.EndHour, defaultEndHour),
	}
	if j.HourlySalary != nil {
		cfg.HourlySalary = *j.HourlySalary
	} else {
		cfg = cfg.DeriveHourly()
	}

	if err := cfg.Validate(); err != nil {
		return worktime.WageConfig{}, decodeError("wage config", err)
	}
	return cfg, nil
}

func MarshalWageConfig(cfg worktime.WageConfig) (json.RawMessage, error) {
	return json.Marshal(WageConfigJSON{
		MonthlySalary:      &cfg.MonthlySalary,
		HourlySalary:       &cfg.HourlySalary,
		OvertimeMultiplier: &cfg.OvertimeMultiplier,
		MonthlyWorkHours:   &cfg.MonthlyWorkHours,
		DailyWorkHours:     &cfg.DailyWorkHours,
		StartHour:          &cfg.StartHour,
		EndHour:            &cfg.EndHour,
	})
}

// =============================================================================
// WORK SESSION
// =============================================================================

func ParseWorkSession(raw []byte) (worktime.WorkSession, error) {
	var j WorkSessionJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return worktime.WorkSession{}, decodeError("work session", err)
	}
	return sessionFromJSON(j)
}

func sessionFromJSON(j WorkSessionJSON) (worktime.WorkSession, error) {
	switch {
	case j.ID == "":
		return worktime.WorkSession{}, missing("work session", "id")
	case j.StartTime == nil:
		return worktime.WorkSession{}, missing("work session", "start_time")
	case j.ScheduledDailyMinutes == nil:
		return worktime.WorkSession{}, missing("work session", "scheduled_daily_minutes")
	case j.HourlyWage == nil:
		return worktime.WorkSession{}, missing("work session", "hourly_wage")
	case j.OvertimeMultiplier == nil:
		return worktime.WorkSession{}, missing("work session", "overtime_multiplier")
	}

	s := worktime.WorkSession{
		ID:                     j.ID,
		StartTime:              *j.StartTime,
		EndTime:                j.EndTime,
		ScheduledDailyMinutes:  *j.ScheduledDailyMinutes,
		HourlyWage:             *j.HourlyWage,
		OvertimeMultiplier:     *j.OvertimeMultiplier,
		RegularMinutes:         j.RegularMinutes,
		OvertimeMinutes:        j.OvertimeMinutes,
		ServiceOvertimeMinutes: j.ServiceOvertimeMinutes,
		RegularIncome:          j.RegularIncome,
		OvertimeIncome:         j.OvertimeIncome,
		ServiceOvertimeLoss:    j.ServiceOvertimeLoss,
		IsServiceOvertime:      j.IsServiceOvertime,
		LunchNotified:          j.LunchNotified,
	}
	if err := s.Validate(); err != nil {
		return worktime.WorkSession{}, decodeError("work session "+j.ID, err)
	}
	return s, nil
}

func sessionToJSON(s worktime.WorkSession) WorkSessionJSON {
	return WorkSessionJSON{
		ID:                     s.ID,
		StartTime:              &s.StartTime,
		EndTime:                s.EndTime,
		ScheduledDailyMinutes:  &s.ScheduledDailyMinutes,
		HourlyWage:             &s.HourlyWage,
		OvertimeMultiplier:     &s.OvertimeMultiplier,
		RegularMinutes:         s.RegularMinutes,
		OvertimeMinutes:        s.OvertimeMinutes,
		ServiceOvertimeMinutes: s.ServiceOvertimeMinutes,
		RegularIncome:          s.RegularIncome,
		OvertimeIncome:         s.OvertimeIncome,
		ServiceOvertimeLoss:    s.ServiceOvertimeLoss,
		IsServiceOvertime:      s.IsServiceOvertime,
		LunchNotified:          s.LunchNotified,
	}
}

func MarshalWorkSession(s worktime.WorkSession) (json.RawMessage, error) {
	return json.Marshal(sessionToJSON(s))
}

// ParseHistory decodes an array of sessions. One bad record fails the whole list.
func ParseHistory(raw []byte) ([]worktime.WorkSession, error) {
	var items []WorkSessionJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, decodeError("work history", err)
	}
	out := make([]worktime.WorkSession, 0, len(items))
	for _, j := range items {
		s, err := sessionFromJSON(j)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func MarshalHistory(history []worktime.WorkSession) (json.RawMessage, error) {
	items := make([]WorkSessionJSON, len(history))
	for i, s := range history {
		items[i] = sessionToJSON(s)
	}
	return json.Marshal(items)
}

// =============================================================================
// CERTIFICATION PLAN
// =============================================================================

func ParsePlan(raw []byte) (certification.Plan, error) {
	var j PlanJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return certification.Plan{}, decodeError("certification plan", err)
	}
	return planFromJSON(j)
}

func planFromJSON(j PlanJSON) (certification.Plan, error) {
	switch {
	case j.ID == "":
		return certification.Plan{}, missing("certification plan", "id")
	case j.Cost == nil:
		return certification.Plan{}, missing("certification plan", "cost")
	case j.StudyHours == nil:
		return certification.Plan{}, missing("certification plan", "study_hours")
	case j.CreatedAt == nil:
		return certification.Plan{}, missing("certification plan", "created_at")
	case j.TargetDate == nil:
		return certification.Plan{}, missing("certification plan", "target_date")
	}

	p := certification.Plan{
		ID:                     j.ID,
		Name:                   j.Name,
		Cost:                   *j.Cost,
		StudyHours:             *j.StudyHours,
		CompanySalaryIncrease:  j.CompanySalaryIncrease,
		TransferSalaryIncrease: j.TransferSalaryIncrease,
		CreatedAt:              *j.CreatedAt,
		TargetDate:             *j.TargetDate,
		AcquiredDate:           j.AcquiredDate,
		Status:                 certification.Status(j.Status),
	}
	if err := p.Validate(); err != nil {
		return certification.Plan{}, decodeError("certification plan "+j.ID, err)
	}
	return p, nil
}

func planToJSON(p certification.Plan) PlanJSON {
	return PlanJSON{
		ID:                     p.ID,
		Name:                   p.Name,
		Cost:                   &p.Cost,
		StudyHours:             &p.StudyHours,
		CompanySalaryIncrease:  p.CompanySalaryIncrease,
		TransferSalaryIncrease: p.TransferSalaryIncrease,
		CreatedAt:              &p.CreatedAt,
		TargetDate:             &p.TargetDate,
		AcquiredDate:           p.AcquiredDate,
		Status:                 string(p.Status),
	}
}

func MarshalPlan(p certification.Plan) (json.RawMessage, error) {
	return json.Marshal(planToJSON(p))
}

func ParsePlans(raw []byte) ([]certification.Plan, error) {
	var items []PlanJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, decodeError("certification plans", err)
	}
	out := make([]certification.Plan, 0, len(items))
	for _, j := range items {
		p, err := planFromJSON(j)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func MarshalPlans(plans []certification.Plan) (json.RawMessage, error) {
	items := make([]PlanJSON, len(plans))
	for i, p := range plans {
		items[i] = planToJSON(p)
	}
	return json.Marshal(items)
}

// =============================================================================
// HELPERS
// =============================================================================

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func decodeError(what string, err error) error {
	return &generic.PersistenceError{Op: "decode", Key: what, Err: err}
}

func missing(what, field string) error {
	return decodeError(what, fmt.Errorf("missing required field %q", field))
}
