package worktime

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// CLASSIFICATION - how minutes beyond the schedule are treated
// =============================================================================

type Classification string

const (
	ClassificationPaid    Classification = "paid"    // overtime paid at hourly * multiplier
	ClassificationService Classification = "service" // unpaid; reported as a loss
)

// ParseClassification validates a classification. Empty defaults to paid.
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case "", ClassificationPaid:
		return ClassificationPaid, nil
	case ClassificationService:
		return ClassificationService, nil
	default:
		return "", &generic.ValidationError{Field: "classification", Message: fmt.Sprintf("unknown classification %q", s)}
	}
}

// =============================================================================
// WORK SESSION
// =============================================================================

// WorkSession is one timed work interval. EndTime == nil means active.
//
// INVARIANTS (once completed):
//   - RegularMinutes + OvertimeMinutes + ServiceOvertimeMinutes == Minutes(StartTime, EndTime)
//   - RegularMinutes <= ScheduledDailyMinutes
//   - OvertimeMinutes and ServiceOvertimeMinutes are never both > 0
type WorkSession struct {
	ID        string
	StartTime time.Time
	EndTime   *time.Time

	// Captured from WageConfig at start.
	ScheduledDailyMinutes int
	HourlyWage            decimal.Decimal
	OvertimeMultiplier    decimal.Decimal

	// Zero while active, set once at completion.
	RegularMinutes         int
	OvertimeMinutes        int
	ServiceOvertimeMinutes int
	RegularIncome          decimal.Decimal
	OvertimeIncome         decimal.Decimal
	ServiceOvertimeLoss    decimal.Decimal
	IsServiceOvertime      bool

	// LunchNotified is set once the lunch milestone was sent for this session.
	LunchNotified bool
}

// NewSession starts an active session at start, snapshotting cfg.
func NewSession(id string, cfg WageConfig, start time.Time) WorkSession {
	return WorkSession{
		ID:                    id,
		StartTime:             start,
		ScheduledDailyMinutes: cfg.ScheduledDailyMinutes(),
		HourlyWage:            cfg.HourlySalary,
		OvertimeMultiplier:    cfg.OvertimeMultiplier,
	}
}

func (s WorkSession) IsActive() bool { return s.EndTime == nil }

// ElapsedMinutes counts whole minutes from start to now (or to EndTime once completed).
func (s WorkSession) ElapsedMinutes(now time.Time) int {
	if s.EndTime != nil {
		return generic.Minutes(s.StartTime, *s.EndTime)
	}
	return generic.Minutes(s.StartTime, now)
}

// IsOvertime reports whether elapsed minutes exceed the schedule.
func (s WorkSession) IsOvertime(now time.Time) bool {
	return s.ElapsedMinutes(now) > s.ScheduledDailyMinutes
}

// TotalMinutes is the sum of the completed partition.
func (s WorkSession) TotalMinutes() int {
	return s.RegularMinutes + s.OvertimeMinutes + s.ServiceOvertimeMinutes
}

// TotalIncome is regular plus paid overtime. ServiceOvertimeLoss is not income.
func (s WorkSession) TotalIncome() decimal.Decimal {
	return s.RegularIncome.Add(s.OvertimeIncome)
}

// Complete returns the completed copy of an active session ended at end.
func (s WorkSession) Complete(end time.Time, class Classification) (WorkSession, error) {
	if !s.IsActive() {
		return s, fmt.Errorf("session %s already completed: %w", s.ID, generic.ErrNotWorking)
	}
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	p := ComputePartition(s.HourlyWage, s.OvertimeMultiplier, s.ScheduledDailyMinutes, generic.Minutes(s.StartTime, end), class)

	done := s
	done.EndTime = &end
	done.RegularMinutes = p.RegularMinutes
	done.OvertimeMinutes = p.OvertimeMinutes
	done.ServiceOvertimeMinutes = p.ServiceOvertimeMinutes
	done.RegularIncome = p.RegularIncome
	done.OvertimeIncome = p.OvertimeIncome
	done.ServiceOvertimeLoss = p.ServiceOvertimeLoss
	done.IsServiceOvertime = class == ClassificationService && p.ServiceOvertimeMinutes > 0
	return done, nil
}

// Validate checks the structural invariants of a session record.
func (s WorkSession) Validate() error {
	switch {
	case s.ID == "":
		return &generic.ValidationError{Field: "id", Message: "required"}
	case s.StartTime.IsZero():
		return &generic.ValidationError{Field: "start_time", Message: "required"}
	case s.ScheduledDailyMinutes < 0:
		return &generic.ValidationError{Field: "scheduled_daily_minutes", Message: "must be >= 0"}
	case s.HourlyWage.IsNegative():
		return &generic.ValidationError{Field: "hourly_wage", Message: "must be >= 0"}
	case s.OvertimeMultiplier.LessThan(minMultiplier):
		return &generic.ValidationError{Field: "overtime_multiplier", Message: "must be >= 1.0"}
	case s.RegularMinutes < 0 || s.OvertimeMinutes < 0 || s.ServiceOvertimeMinutes < 0:
		return &generic.ValidationError{Field: "minutes", Message: "must be >= 0"}
	case s.RegularIncome.IsNegative() || s.OvertimeIncome.IsNegative() || s.ServiceOvertimeLoss.IsNegative():
		return &generic.ValidationError{Field: "income", Message: "must be >= 0"}
	case s.OvertimeMinutes > 0 && s.ServiceOvertimeMinutes > 0:
		return &generic.ValidationError{Field: "overtime_minutes", Message: "paid and service overtime are exclusive"}
	}
	if s.EndTime == nil {
		if s.TotalMinutes() != 0 {
			return &generic.ValidationError{Field: "minutes", Message: "active session has derived minutes"}
		}
		return nil
	}
	if s.EndTime.Before(s.StartTime) {
		return &generic.ValidationError{Field: "end_time", Message: "before start_time"}
	}
	if s.RegularMinutes > s.ScheduledDailyMinutes {
		return &generic.ValidationError{Field: "regular_minutes", Message: "exceeds scheduled minutes"}
	}
	if s.TotalMinutes() != generic.Minutes(s.StartTime, *s.EndTime) {
		return &generic.ValidationError{Field: "minutes", Message: "partition does not match elapsed time"}
	}
	return nil
}

// =============================================================================
// PARTITION - the central earnings calculation
// =============================================================================

// Partition splits elapsed minutes into regular / overtime / service overtime
// and prices each part.
type Partition struct {
	RegularMinutes         int
	OvertimeMinutes        int
	ServiceOvertimeMinutes int
	RegularIncome          decimal.Decimal
	OvertimeIncome         decimal.Decimal
	ServiceOvertimeLoss    decimal.Decimal
}

// TotalIncome excludes ServiceOvertimeLoss.
func (p Partition) TotalIncome() decimal.Decimal { return p.RegularIncome.Add(p.OvertimeIncome) }

// ComputePartition applies the wage rules to totalMinutes.
// Regular minutes never depend on the classification; the multiplier applies
// to service overtime too, so the loss is comparable to paid overtime income.
func ComputePartition(hourly, multiplier decimal.Decimal, scheduled, totalMinutes int, class Classification) Partition {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	if totalMinutes <= scheduled {
		return Partition{
			RegularMinutes:      totalMinutes,
			RegularIncome:       generic.MinuteIncome(hourly, totalMinutes),
			OvertimeIncome:      decimal.Zero,
			ServiceOvertimeLoss: decimal.Zero,
		}
	}

	extra := totalMinutes - scheduled
	extraPay := generic.MinuteIncome(hourly, extra).Mul(multiplier)
	p := Partition{
		RegularMinutes:      scheduled,
		RegularIncome:       generic.MinuteIncome(hourly, scheduled),
		OvertimeIncome:      decimal.Zero,
		ServiceOvertimeLoss: decimal.Zero,
	}
	if class == ClassificationService {
		p.ServiceOvertimeMinutes = extra
		p.ServiceOvertimeLoss = extraPay
	} else {
		p.OvertimeMinutes = extra
		p.OvertimeIncome = extraPay
	}
	return p
}

// =============================================================================
// SNAPSHOT - live display value while active
// =============================================================================

// Snapshot is published on every tick. Earnings are computed optimistically
// as if the overtime were paid; the real classification is fixed at EndWork.
type Snapshot struct {
	SessionID       string
	At              time.Time
	StartTime       time.Time
	ElapsedSeconds  int64
	ElapsedMinutes  int
	CurrentEarnings decimal.Decimal
	IsOvertime      bool
	OvertimeMinutes int
}

// SnapshotAt computes the live snapshot of an active session at now.
func (s WorkSession) SnapshotAt(now time.Time) Snapshot {
	minutes := s.ElapsedMinutes(now)
	p := ComputePartition(s.HourlyWage, s.OvertimeMultiplier, s.ScheduledDailyMinutes, minutes, ClassificationPaid)
	return Snapshot{
		SessionID:       s.ID,
		At:              now,
		StartTime:       s.StartTime,
		ElapsedSeconds:  generic.Seconds(s.StartTime, now),
		ElapsedMinutes:  minutes,
		CurrentEarnings: p.TotalIncome(),
		IsOvertime:      minutes > s.ScheduledDailyMinutes,
		OvertimeMinutes: p.OvertimeMinutes,
	}
}
