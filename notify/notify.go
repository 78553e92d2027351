/*
Package notify provides worktime.Notifier implementations.

PURPOSE:
  The engine only decides when a notification is due and what it carries.
  Presenting it is someone else's job. This package holds the presenters
  that ship with the server:

  - Log: writes each event as a structured log line with a readable message
  - Fanout: delivers to several notifiers and joins their errors

  The websocket broadcaster in api/live.go is a third Notifier and is
  usually combined with Log through Fanout.

SEE ALSO:
  - worktime/notify.go: Event and payload types
*/
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// LOG NOTIFIER
// =============================================================================

// Log renders events through zerolog.
type Log struct {
	log zerolog.Logger
}

var _ worktime.Notifier = (*Log)(nil)

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

func (l *Log) Notify(_ context.Context, ev worktime.Event) error {
	l.log.Info().
		Str("category", string(ev.Category)).
		Str("session", ev.SessionID).
		Time("at", ev.At).
		Interface("data", ev.Data).
		Msg(Message(ev))
	return nil
}

// Message returns the user-facing text for an event.
func Message(ev worktime.Event) string {
	switch d := ev.Data.(type) {
	case worktime.WorkStartedData:
		return "Work started. Have a good day."
	case worktime.WorkEndedData:
		if d.TotalLoss.IsPositive() {
			return fmt.Sprintf("Work ended. Earned %s, unpaid overtime worth %s.",
				d.TotalIncome.StringFixed(0), d.TotalLoss.StringFixed(0))
		}
		return fmt.Sprintf("Work ended. Earned %s today.", d.TotalIncome.StringFixed(0))
	case worktime.BreakReminderData:
		return fmt.Sprintf("%d hour(s) in, earned %s so far. Time for a short break.",
			d.ElapsedHours, d.CurrentEarnings.StringFixed(0))
	case worktime.LunchMilestoneData:
		return fmt.Sprintf("Lunch time. This morning earned %s.", d.MorningEarnings.StringFixed(0))
	case worktime.ServiceOvertimeWarningData:
		return fmt.Sprintf("%d minute(s) of unpaid overtime, worth %s.", d.Minutes, d.LossAmount.StringFixed(0))
	case worktime.ShiftEndData:
		return fmt.Sprintf("Scheduled end of day. Earned %s over %d minute(s).",
			d.CurrentEarnings.StringFixed(0), d.ElapsedMinutes)
	default:
		return string(ev.Category)
	}
}

// =============================================================================
// FANOUT
// =============================================================================

// Fanout delivers every event to each notifier in order. One failure does
// not stop delivery to the rest.
type Fanout []worktime.Notifier

var _ worktime.Notifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, ev worktime.Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
