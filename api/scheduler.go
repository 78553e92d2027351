/*
scheduler.go - Shift-end reminder

PURPOSE:
  Fires a shift_end notification at the top of the configured end hour
  (WageConfig.EndHour, local time) when a session is still running. Idle
  days produce nothing.

DESIGN:
  - One robfig/cron job, "0 0 <EndHour> * * *" (seconds-enabled parser)
  - Reschedule replaces the job when the end hour changes
  - The event goes through Engine.Notify so it reaches the same notifiers
    (log, websocket) as every other event and shares its failure handling

USAGE:
  s := NewShiftScheduler(engine, log)
  s.Start()
  defer s.Stop()

SEE ALSO:
  - handlers.go: UpdateConfig calls Reschedule
  - worktime/notify.go: ShiftEndData
*/
package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/worktime"
)

// ShiftScheduler owns the cron job for the shift-end reminder.
type ShiftScheduler struct {
	engine *worktime.Engine
	cron   *cron.Cron
	log    zerolog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	hour    int
	running bool
}

func NewShiftScheduler(engine *worktime.Engine, log zerolog.Logger) *ShiftScheduler {
	return &ShiftScheduler{
		engine: engine,
		cron:   cron.New(cron.WithSeconds()),
		log:    log.With().Str("component", "scheduler").Logger(),
		hour:   -1,
	}
}

// Start schedules the job for the current end hour and starts cron.
func (s *ShiftScheduler) Start() error {
	if err := s.Reschedule(s.engine.Config().EndHour); err != nil {
		return err
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
	return nil
}

// Stop waits for a running job to finish.
func (s *ShiftScheduler) Stop() {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// Reschedule moves the reminder to endHour. Same hour is a no-op.
func (s *ShiftScheduler) Reschedule(endHour int) error {
	if endHour < 0 || endHour > 23 {
		return fmt.Errorf("end hour %d out of range", endHour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hour == endHour && s.entry != 0 {
		return nil
	}

	spec := Schedule(endHour)
	id, err := s.cron.AddFunc(spec, func() { s.Fire(context.Background()) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry, s.hour = id, endHour

	s.log.Info().Str("schedule", spec).Int("end_hour", endHour).Msg("Shift-end reminder scheduled")
	return nil
}

// Hour returns the scheduled end hour, or -1 before the first Reschedule.
func (s *ShiftScheduler) Hour() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hour
}

// Fire emits the reminder if a session is active and reports whether it did.
func (s *ShiftScheduler) Fire(ctx context.Context) bool {
	snap, ok := s.engine.Snapshot()
	if !ok {
		s.log.Debug().Msg("Shift end reached while idle")
		return false
	}
	s.engine.Notify(ctx, worktime.NewEvent(snap.SessionID, snap.At, worktime.ShiftEndData{
		CurrentEarnings: snap.CurrentEarnings,
		ElapsedMinutes:  snap.ElapsedMinutes,
	}))
	return true
}

// Schedule is the cron expression for the top of hour.
func Schedule(hour int) string {
	return fmt.Sprintf("0 0 %d * * *", hour)
}
