package worktime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NOTIFICATION EVENTS
// =============================================================================

// Category identifies a notification trigger point.
type Category string

const (
	CategoryWorkStarted            Category = "work_started"
	CategoryWorkEnded              Category = "work_ended"
	CategoryBreakReminder          Category = "break_reminder"
	CategoryLunchMilestone         Category = "lunch_milestone"
	CategoryServiceOvertimeWarning Category = "service_overtime_warning"
	CategoryShiftEnd               Category = "shift_end"
)

// EventData is implemented by every payload type.
type EventData interface {
	EventCategory() Category
}

// Event is what the engine hands to a Notifier.
type Event struct {
	Category  Category
	SessionID string
	At        time.Time
	Data      EventData
}

// NewEvent stamps an event with the payload's category.
func NewEvent(sessionID string, at time.Time, data EventData) Event {
	return Event{Category: data.EventCategory(), SessionID: sessionID, At: at, Data: data}
}

// WorkStartedData has no payload.
type WorkStartedData struct{}

func (WorkStartedData) EventCategory() Category { return CategoryWorkStarted }

// WorkEndedData carries the session totals.
type WorkEndedData struct {
	TotalIncome decimal.Decimal `json:"total_income"`
	TotalLoss   decimal.Decimal `json:"total_loss"`
}

func (WorkEndedData) EventCategory() Category { return CategoryWorkEnded }

// BreakReminderData fires once per elapsed hour.
type BreakReminderData struct {
	ElapsedHours    int             `json:"elapsed_hours"`
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
}

func (BreakReminderData) EventCategory() Category { return CategoryBreakReminder }

// LunchMilestoneData fires at most once per session.
type LunchMilestoneData struct {
	MorningEarnings decimal.Decimal `json:"morning_earnings"`
}

func (LunchMilestoneData) EventCategory() Category { return CategoryLunchMilestone }

// ServiceOvertimeWarningData fires when a session ends as unpaid overtime.
type ServiceOvertimeWarningData struct {
	LossAmount decimal.Decimal `json:"loss_amount"`
	Minutes    int             `json:"minutes"`
}

func (ServiceOvertimeWarningData) EventCategory() Category { return CategoryServiceOvertimeWarning }

// ShiftEndData fires at the configured end hour while still working.
type ShiftEndData struct {
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
	ElapsedMinutes  int             `json:"elapsed_minutes"`
}

func (ShiftEndData) EventCategory() Category { return CategoryShiftEnd }

// Notifier presents events to the user. Presentation is out of scope for the
// engine; failures are logged and never affect the session lifecycle.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	lunchStartHour       = 12
	lunchEndHour         = 13
	lunchMinElapsedHours = 3
)

// inLunchWindow reports whether the local hour is within [12, 13).
func inLunchWindow(now time.Time) bool {
	h := now.Hour()
	return h >= lunchStartHour && h < lunchEndHour
}
