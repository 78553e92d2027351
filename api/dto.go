/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract. Money is always a
  decimal string, timestamps are RFC3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Config:
    WageConfigDTO, UpdateWageConfigRequest

  Sessions:
    SessionDTO, SnapshotDTO, SessionStateResponse, EndWorkRequest,
    SummaryDTO, SessionsResponse, DailySummaryDTO

  Certification:
    PlanDTO, CreatePlanRequest, UpdatePlanRequest, SetStatusRequest,
    ROIDTO, PlanSummaryDTO

  Live feed:
    LiveMessage, EventDTO

VALIDATION:
  Validation is done by the domain packages, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// WAGE CONFIG
// =============================================================================

type WageConfigDTO struct {
	MonthlySalary      decimal.Decimal `json:"monthly_salary"`
	HourlySalary       decimal.Decimal `json:"hourly_salary"`
	OvertimeMultiplier decimal.Decimal `json:"overtime_multiplier"`
	MonthlyWorkHours   int             `json:"monthly_work_hours"`
	DailyWorkHours     int             `json:"daily_work_hours"`
	StartHour          int             `json:"start_hour"`
	EndHour            int             `json:"end_hour"`
}

// UpdateWageConfigRequest is a partial update. Absent fields keep their value.
type UpdateWageConfigRequest struct {
	MonthlySalary      *decimal.Decimal `json:"monthly_salary,omitempty"`
	HourlySalary       *decimal.Decimal `json:"hourly_salary,omitempty"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	MonthlyWorkHours   *int             `json:"monthly_work_hours,omitempty"`
	DailyWorkHours     *int             `json:"daily_work_hours,omitempty"`
	StartHour          *int             `json:"start_hour,omitempty"`
	EndHour            *int             `json:"end_hour,omitempty"`

	// DeriveHourly recomputes hourly_salary from monthly salary and hours.
	DeriveHourly bool `json:"derive_hourly,omitempty"`
}

func (r UpdateWageConfigRequest) toUpdate() worktime.WageConfigUpdate {
	return worktime.WageConfigUpdate{
		MonthlySalary:      r.MonthlySalary,
		HourlySalary:       r.HourlySalary,
		OvertimeMultiplier: r.OvertimeMultiplier,
		MonthlyWorkHours:   r.MonthlyWorkHours,
		DailyWorkHours:     r.DailyWorkHours,
		StartHour:          r.StartHour,
		EndHour:            r.EndHour,
	}
}

// =============================================================================
// SESSIONS
// =============================================================================

type SessionDTO struct {
	ID                     string          `json:"id"`
	StartTime              string          `json:"start_time"`
	EndTime                *string         `json:"end_time"`
	Active                 bool            `json:"active"`
	ScheduledDailyMinutes  int             `json:"scheduled_daily_minutes"`
	HourlyWage             decimal.Decimal `json:"hourly_wage"`
	OvertimeMultiplier     decimal.Decimal `json:"overtime_multiplier"`
	RegularMinutes         int             `json:"regular_minutes"`
	OvertimeMinutes        int             `json:"overtime_minutes"`
	ServiceOvertimeMinutes int             `json:"service_overtime_minutes"`
	TotalMinutes           int             `json:"total_minutes"`
	RegularIncome          decimal.Decimal `json:"regular_income"`
	OvertimeIncome         decimal.Decimal `json:"overtime_income"`
	TotalIncome            decimal.Decimal `json:"total_income"`
	ServiceOvertimeLoss    decimal.Decimal `json:"service_overtime_loss"`
	IsServiceOvertime      bool            `json:"is_service_overtime"`
}

type SnapshotDTO struct {
	SessionID       string          `json:"session_id"`
	At              string          `json:"at"`
	StartTime       string          `json:"start_time"`
	ElapsedSeconds  int64           `json:"elapsed_seconds"`
	ElapsedMinutes  int             `json:"elapsed_minutes"`
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
	IsOvertime      bool            `json:"is_overtime"`
	OvertimeMinutes int             `json:"overtime_minutes"`
}

// SessionStateResponse describes the timer: idle, or working with a live snapshot.
type SessionStateResponse struct {
	Working  bool         `json:"working"`
	Session  *SessionDTO  `json:"session,omitempty"`
	Snapshot *SnapshotDTO `json:"snapshot,omitempty"`
}

// EndWorkRequest selects how minutes past the schedule are classified.
// An empty classification means paid.
type EndWorkRequest struct {
	Classification string `json:"classification"`
}

type SummaryDTO struct {
	SessionCount           int             `json:"session_count"`
	TotalWorkMinutes       int             `json:"total_work_minutes"`
	RegularMinutes         int             `json:"regular_minutes"`
	OvertimeMinutes        int             `json:"overtime_minutes"`
	ServiceOvertimeMinutes int             `json:"service_overtime_minutes"`
	RegularIncome          decimal.Decimal `json:"regular_income"`
	OvertimeIncome         decimal.Decimal `json:"overtime_income"`
	TotalIncome            decimal.Decimal `json:"total_income"`
	TotalServiceLoss       decimal.Decimal `json:"total_service_loss"`
}

type SessionsResponse struct {
	Period   string       `json:"period"`
	From     *string      `json:"from"`
	To       string       `json:"to"`
	Sessions []SessionDTO `json:"sessions"`
	Summary  SummaryDTO   `json:"summary"`
}

type DailySummaryDTO struct {
	Day      string       `json:"day"`
	Summary  SummaryDTO   `json:"summary"`
	Sessions []SessionDTO `json:"sessions"`
}

// =============================================================================
// CERTIFICATION
// =============================================================================

type PlanDTO struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Cost                   decimal.Decimal `json:"cost"`
	StudyHours             int             `json:"study_hours"`
	CompanySalaryIncrease  decimal.Decimal `json:"company_salary_increase"`
	TransferSalaryIncrease decimal.Decimal `json:"transfer_salary_increase"`
	CreatedAt              string          `json:"created_at"`
	TargetDate             string          `json:"target_date"`
	AcquiredDate           *string         `json:"acquired_date"`
	Status                 string          `json:"status"`
	ROI                    *ROIDTO         `json:"roi,omitempty"`
}

// CreatePlanRequest creates a plan in planning status.
type CreatePlanRequest struct {
	Name                   string          `json:"name"`
	Cost                   decimal.Decimal `json:"cost"`
	StudyHours             int             `json:"study_hours"`
	CompanySalaryIncrease  decimal.Decimal `json:"company_salary_increase"`
	TransferSalaryIncrease decimal.Decimal `json:"transfer_salary_increase"`
	TargetDate             string          `json:"target_date"`
}

// UpdatePlanRequest replaces a plan's editable fields. An empty status keeps
// the current one.
type UpdatePlanRequest struct {
	CreatePlanRequest
	Status       string  `json:"status,omitempty"`
	AcquiredDate *string `json:"acquired_date,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

// ROIDTO renders break-even years. A zero raise never pays back: the ROI is
// null and the matching *_never_breaks_even flag is true.
type ROIDTO struct {
	CompanyAnnualIncrease   decimal.Decimal `json:"company_annual_increase"`
	TransferAnnualIncrease  decimal.Decimal `json:"transfer_annual_increase"`
	CompanyROIYears         *float64        `json:"company_roi_years"`
	CompanyNeverBreaksEven  bool            `json:"company_never_breaks_even"`
	TransferROIYears        *float64        `json:"transfer_roi_years"`
	TransferNeverBreaksEven bool            `json:"transfer_never_breaks_even"`
	CompanyStudyWage        decimal.Decimal `json:"company_study_wage"`
	TransferStudyWage       decimal.Decimal `json:"transfer_study_wage"`
	CompanyRating           string          `json:"company_rating"`
	TransferRating          string          `json:"transfer_rating"`
	BestRating              string          `json:"best_rating"`
}

type PlanSummaryDTO struct {
	PlanCount                    int             `json:"plan_count"`
	ByStatus                     map[string]int  `json:"by_status"`
	TotalCost                    decimal.Decimal `json:"total_cost"`
	TotalStudyHours              int             `json:"total_study_hours"`
	TotalCompanyMonthlyIncrease  decimal.Decimal `json:"total_company_monthly_increase"`
	TotalTransferMonthlyIncrease decimal.Decimal `json:"total_transfer_monthly_increase"`
	NextTarget                   *string         `json:"next_target"`
}

// =============================================================================
// LIVE FEED
// =============================================================================

const (
	LiveTypeSnapshot = "snapshot"
	LiveTypeEvent    = "event"
	LiveTypeIdle     = "idle"
)

// LiveMessage is one websocket frame.
type LiveMessage struct {
	Type     string       `json:"type"`
	Snapshot *SnapshotDTO `json:"snapshot,omitempty"`
	Event    *EventDTO    `json:"event,omitempty"`
}

type EventDTO struct {
	Category  string `json:"category"`
	SessionID string `json:"session_id"`
	At        string `json:"at"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ResetResponse reports what a full reset removed.
type ResetResponse struct {
	Status          string `json:"status"`
	SessionsRemoved int    `json:"sessions_removed"`
	PlansRemoved    int    `json:"plans_removed"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toWageConfigDTO(c worktime.WageConfig) WageConfigDTO {
	return WageConfigDTO{
		MonthlySalary:      c.MonthlySalary,
		HourlySalary:       c.HourlySalary,
		OvertimeMultiplier: c.OvertimeMultiplier,
		MonthlyWorkHours:   c.MonthlyWorkHours,
		DailyWorkHours:     c.DailyWorkHours,
		StartHour:          c.StartHour,
		EndHour:            c.EndHour,
	}
}

func toSessionDTO(s worktime.WorkSession) SessionDTO {
	return SessionDTO{
		ID:                     s.ID,
		StartTime:              formatTime(s.StartTime),
		EndTime:                formatTimePtr(s.EndTime),
		Active:                 s.IsActive(),
		ScheduledDailyMinutes:  s.ScheduledDailyMinutes,
		HourlyWage:             s.HourlyWage,
		OvertimeMultiplier:     s.OvertimeMultiplier,
		RegularMinutes:         s.RegularMinutes,
		OvertimeMinutes:        s.OvertimeMinutes,
		ServiceOvertimeMinutes: s.ServiceOvertimeMinutes,
		TotalMinutes:           s.TotalMinutes(),
		RegularIncome:          s.RegularIncome,
		OvertimeIncome:         s.OvertimeIncome,
		TotalIncome:            s.TotalIncome(),
		ServiceOvertimeLoss:    s.ServiceOvertimeLoss,
		IsServiceOvertime:      s.IsServiceOvertime,
	}
}

func toSessionDTOs(sessions []worktime.WorkSession) []SessionDTO {
	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	return dtos
}

func toSnapshotDTO(s worktime.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		SessionID:       s.SessionID,
		At:              formatTime(s.At),
		StartTime:       formatTime(s.StartTime),
		ElapsedSeconds:  s.ElapsedSeconds,
		ElapsedMinutes:  s.ElapsedMinutes,
		CurrentEarnings: s.CurrentEarnings,
		IsOvertime:      s.IsOvertime,
		OvertimeMinutes: s.OvertimeMinutes,
	}
}

func toSummaryDTO(s worktime.Summary) SummaryDTO {
	return SummaryDTO{
		SessionCount:           s.SessionCount,
		TotalWorkMinutes:       s.TotalWorkMinutes,
		RegularMinutes:         s.RegularMinutes,
		OvertimeMinutes:        s.OvertimeMinutes,
		ServiceOvertimeMinutes: s.ServiceOvertimeMinutes,
		RegularIncome:          s.RegularIncome,
		OvertimeIncome:         s.OvertimeIncome,
		TotalIncome:            s.TotalIncome,
		TotalServiceLoss:       s.TotalServiceLoss,
	}
}

func toSessionsResponse(pt generic.PeriodType, p generic.Period, sessions []worktime.WorkSession) SessionsResponse {
	resp := SessionsResponse{
		Period:   string(pt),
		To:       formatTime(p.End),
		Sessions: toSessionDTOs(sessions),
		Summary:  toSummaryDTO(worktime.Aggregate(slices.Values(sessions))),
	}
	if !p.Start.IsZero() {
		resp.From = formatTimePtr(&p.Start)
	}
	return resp
}

func toDailySummaryDTOs(days []worktime.DailySummary) []DailySummaryDTO {
	dtos := make([]DailySummaryDTO, len(days))
	for i, d := range days {
		dtos[i] = DailySummaryDTO{
			Day:      d.Day.Format(time.DateOnly),
			Summary:  toSummaryDTO(d.Summary),
			Sessions: toSessionDTOs(d.Sessions),
		}
	}
	return dtos
}

func toPlanDTO(p certification.Plan, withROI bool) PlanDTO {
	dto := PlanDTO{
		ID:                     p.ID,
		Name:                   p.Name,
		Cost:                   p.Cost,
		StudyHours:             p.StudyHours,
		CompanySalaryIncrease:  p.CompanySalaryIncrease,
		TransferSalaryIncrease: p.TransferSalaryIncrease,
		CreatedAt:              formatTime(p.CreatedAt),
		TargetDate:             formatTime(p.TargetDate),
		AcquiredDate:           formatTimePtr(p.AcquiredDate),
		Status:                 string(p.Status),
	}
	if withROI {
		roi := toROIDTO(certification.Calculate(p))
		dto.ROI = &roi
	}
	return dto
}

func toROIDTO(r certification.ROIResult) ROIDTO {
	company, companyNever := finiteYears(r.CompanyROI)
	transfer, transferNever := finiteYears(r.TransferROI)
	return ROIDTO{
		CompanyAnnualIncrease:   r.CompanyAnnualIncrease,
		TransferAnnualIncrease:  r.TransferAnnualIncrease,
		CompanyROIYears:         company,
		CompanyNeverBreaksEven:  companyNever,
		TransferROIYears:        transfer,
		TransferNeverBreaksEven: transferNever,
		CompanyStudyWage:        r.CompanyStudyWage,
		TransferStudyWage:       r.TransferStudyWage,
		CompanyRating:           string(r.CompanyRating),
		TransferRating:          string(r.TransferRating),
		BestRating:              string(r.BestRating()),
	}
}

// finiteYears returns nil and true for an infinite ROI.
func finiteYears(v float64) (*float64, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, true
	}
	return &v, false
}

func toPlanSummaryDTO(s certification.Summary) PlanSummaryDTO {
	byStatus := make(map[string]int, len(s.ByStatus))
	for st, n := range s.ByStatus {
		byStatus[string(st)] = n
	}
	return PlanSummaryDTO{
		PlanCount:                    s.PlanCount,
		ByStatus:                     byStatus,
		TotalCost:                    s.TotalCost,
		TotalStudyHours:              s.TotalStudyHours,
		TotalCompanyMonthlyIncrease:  s.TotalCompanyMonthlyIncrease,
		TotalTransferMonthlyIncrease: s.TotalTransferMonthlyIncrease,
		NextTarget:                   formatTimePtr(s.NextTarget),
	}
}
