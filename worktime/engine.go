/*
engine.go - The session timer

PURPOSE:
  Engine drives the Idle -> Active -> Completed lifecycle, owns the current
  WageConfig, runs the 1-second tick while a session is active and emits
  notification events at the defined trigger points.

STATE MACHINE:
  StartWork  Idle   -> Active     (ErrAlreadyWorking otherwise)
  EndWork    Active -> Completed  (ErrNotWorking otherwise)
  Load       resumes a persisted active session with its original start

TICKING:
  One goroutine per active session reads a generic.Ticker. Each tick
  recomputes elapsed time from Clock.Now() - StartTime, publishes a
  Snapshot to subscribers and evaluates the reminder thresholds:
    - break reminder: once per completed elapsed hour
    - lunch milestone: once per session, local hour in [12,13) and >= 3h elapsed
  Ticks leave the earnings fields alone; the only write is the lunch flag on
  the active record, so a restart does not repeat the milestone. EndWork,
  Reset and Close stop the goroutine and wait for it to exit.

NOTIFICATIONS:
  Dispatched after the state change is durable. Notifier errors are logged
  and swallowed.

SEE ALSO:
  - ledger.go: Durable state transitions
  - session.go: Earnings partition and snapshots
*/
package worktime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/generic"
)

// DefaultTickInterval is the live refresh rate while Active.
const DefaultTickInterval = time.Second

// Options configures an Engine. Zero values pick production defaults.
type Options struct {
	Clock         generic.Clock
	TickerFactory generic.TickerFactory
	TickInterval  time.Duration
	Notifier      Notifier
	NewID         func() string
}

// Engine is the SessionTimer. All lifecycle methods are safe for concurrent use.
type Engine struct {
	repo      Repository
	ledger    *SessionLedger
	notifier  Notifier
	clock     generic.Clock
	newTicker generic.TickerFactory
	interval  time.Duration
	newID     func() string
	log       zerolog.Logger

	mu            sync.Mutex
	config        WageConfig
	lastBreakHour int
	stopTick      chan struct{}
	tickDone      chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewEngine(repo Repository, log zerolog.Logger, opts Options) *Engine {
	e := &Engine{
		repo:      repo,
		ledger:    NewSessionLedger(repo),
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		newTicker: opts.TickerFactory,
		interval:  opts.TickInterval,
		newID:     opts.NewID,
		log:       log.With().Str("component", "engine").Logger(),
		config:    DefaultWageConfig(),
		subs:      make(map[int]chan Snapshot),
	}
	if e.clock == nil {
		e.clock = generic.SystemClock{}
	}
	if e.newTicker == nil {
		e.newTicker = generic.NewTicker
	}
	if e.interval <= 0 {
		e.interval = DefaultTickInterval
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Ledger exposes the session history for statistics.
func (e *Engine) Ledger() *SessionLedger { return e.ledger }

// Clock returns the engine's time source.
func (e *Engine) Clock() generic.Clock { return e.clock }

// =============================================================================
// STARTUP / SHUTDOWN
// =============================================================================

// Load reads config and ledger from the repository and resumes a persisted
// active session, if any, using its original StartTime.
func (e *Engine) Load(ctx context.Context) error {
	cfg, found, err := e.repo.LoadWageConfig(ctx)
	if err != nil {
		return fmt.Errorf("load wage config: %w", err)
	}
	if !found {
		cfg = DefaultWageConfig()
	}

	resumed, err := e.ledger.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = cfg

	if resumed != nil {
		now := e.clock.Now()
		e.lastBreakHour = resumed.ElapsedMinutes(now) / 60
		e.startTickingLocked()
		e.log.Info().
			Str("session", resumed.ID).
			Time("start", resumed.StartTime).
			Int("elapsed_min", resumed.ElapsedMinutes(now)).
			Msg("Resumed active session")
	}
	e.log.Info().Int("history", e.ledger.Len()).Msg("Ledger loaded")
	return nil
}

// Close stops the tick loop. Persisted state is untouched, so a later Load resumes.
func (e *Engine) Close() {
	e.mu.Lock()
	done := e.detachTickerLocked()
	e.mu.Unlock()
	waitTicker(done)

	e.subMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subMu.Unlock()
}

// Reset removes all sessions (history and active) and stops ticking.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	if err := e.ledger.RemoveAll(ctx); err != nil {
		e.mu.Unlock()
		return err
	}
	done := e.detachTickerLocked()
	e.mu.Unlock()
	waitTicker(done)

	e.log.Warn().Msg("Session data reset")
	return nil
}

// =============================================================================
// WAGE CONFIG
// =============================================================================

func (e *Engine) Config() WageConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// UpdateConfig validates and persists a config change. With deriveHourly the
// hourly salary is recomputed from the monthly salary and hours. The running
// session keeps the values it captured at start.
func (e *Engine) UpdateConfig(ctx context.Context, u WageConfigUpdate, deriveHourly bool) (WageConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := e.config.Update(u)
	if err != nil {
		return e.config, err
	}
	if deriveHourly {
		next = next.DeriveHourly()
		if err := next.Validate(); err != nil {
			return e.config, err
		}
	}
	if err := e.repo.SaveWageConfig(ctx, next); err != nil {
		return e.config, err
	}
	e.config = next
	e.log.Info().
		Str("hourly", next.HourlySalary.String()).
		Int("daily_hours", next.DailyWorkHours).
		Msg("Wage config updated")
	return next, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// StartWork creates the active session. Fails with ErrAlreadyWorking if one exists.
func (e *Engine) StartWork(ctx context.Context) (WorkSession, error) {
	e.mu.Lock()
	if active, ok := e.ledger.Active(); ok {
		e.mu.Unlock()
		return WorkSession{}, fmt.Errorf("session %s started at %s: %w",
			active.ID, active.StartTime.Format(time.RFC3339), generic.ErrAlreadyWorking)
	}

	s := NewSession(e.newID(), e.config, e.clock.Now())
	if err := e.ledger.begin(ctx, s); err != nil {
		e.mu.Unlock()
		return WorkSession{}, err
	}
	e.lastBreakHour = 0
	e.startTickingLocked()
	e.mu.Unlock()

	e.log.Info().Str("session", s.ID).Time("start", s.StartTime).Msg("Work started")
	e.dispatch(ctx, NewEvent(s.ID, s.StartTime, WorkStartedData{}))
	return s, nil
}

// EndWork completes the active session with the given overtime classification.
// Fails with ErrNotWorking if idle.
func (e *Engine) EndWork(ctx context.Context, class Classification) (WorkSession, error) {
	e.mu.Lock()
	active, ok := e.ledger.Active()
	if !ok {
		e.mu.Unlock()
		return WorkSession{}, generic.ErrNotWorking
	}

	done, err := active.Complete(e.clock.Now(), class)
	if err != nil {
		e.mu.Unlock()
		return WorkSession{}, err
	}
	clearErr, err := e.ledger.finish(ctx, done)
	if err != nil {
		e.mu.Unlock()
		return WorkSession{}, err
	}
	tick := e.detachTickerLocked()
	e.mu.Unlock()
	waitTicker(tick)

	if clearErr != nil {
		e.log.Warn().Err(clearErr).Str("session", done.ID).
			Msg("Active record not cleared; it will be reconciled on next load")
	}

	e.log.Info().
		Str("session", done.ID).
		Str("classification", string(class)).
		Int("regular_min", done.RegularMinutes).
		Int("overtime_min", done.OvertimeMinutes).
		Int("service_min", done.ServiceOvertimeMinutes).
		Str("income", done.TotalIncome().String()).
		Msg("Work ended")

	e.dispatch(ctx, NewEvent(done.ID, *done.EndTime, WorkEndedData{
		TotalIncome: done.TotalIncome(),
		TotalLoss:   done.ServiceOvertimeLoss,
	}))
	if done.IsServiceOvertime {
		e.dispatch(ctx, NewEvent(done.ID, *done.EndTime, ServiceOvertimeWarningData{
			LossAmount: done.ServiceOvertimeLoss,
			Minutes:    done.ServiceOvertimeMinutes,
		}))
	}
	return done, nil
}

// MarkServiceOvertime ends the active session classifying the excess as unpaid.
func (e *Engine) MarkServiceOvertime(ctx context.Context) (WorkSession, error) {
	return e.EndWork(ctx, ClassificationService)
}

// Active returns the running session, if any.
func (e *Engine) Active() (WorkSession, bool) {
	return e.ledger.Active()
}

// IsOvertime reports whether the active session has passed its schedule.
func (e *Engine) IsOvertime() bool {
	s, ok := e.ledger.Active()
	return ok && s.IsOvertime(e.clock.Now())
}

// Snapshot computes the live snapshot without waiting for a tick.
func (e *Engine) Snapshot() (Snapshot, bool) {
	s, ok := e.ledger.Active()
	if !ok {
		return Snapshot{}, false
	}
	return s.SnapshotAt(e.clock.Now()), true
}

// =============================================================================
// TICK
// =============================================================================

// Tick runs one tick synchronously: publish the snapshot, then evaluate
// thresholds and dispatch any resulting events. Returns false when idle.
func (e *Engine) Tick(ctx context.Context) (Snapshot, bool) {
	e.mu.Lock()
	active, ok := e.ledger.Active()
	if !ok {
		e.mu.Unlock()
		return Snapshot{}, false
	}
	now := e.clock.Now()
	snap := active.SnapshotAt(now)

	var events []Event
	if hours := snap.ElapsedMinutes / 60; hours >= 1 && hours > e.lastBreakHour {
		e.lastBreakHour = hours
		events = append(events, NewEvent(active.ID, now, BreakReminderData{
			ElapsedHours:    hours,
			CurrentEarnings: snap.CurrentEarnings,
		}))
	}
	if !active.LunchNotified && inLunchWindow(now) && snap.ElapsedMinutes >= lunchMinElapsedHours*60 {
		if err := e.ledger.markLunch(ctx); err != nil {
			e.log.Warn().Err(err).Str("session", active.ID).Msg("Lunch milestone flag not saved")
		}
		events = append(events, NewEvent(active.ID, now, LunchMilestoneData{
			MorningEarnings: snap.CurrentEarnings,
		}))
	}
	e.mu.Unlock()

	e.publish(snap)
	for _, ev := range events {
		e.dispatch(ctx, ev)
	}
	return snap, true
}

// Subscribe registers a live-snapshot listener. Slow listeners miss ticks
// rather than block the timer. Call cancel to unsubscribe.
func (e *Engine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			if c, ok := e.subs[id]; ok {
				close(c)
				delete(e.subs, id)
			}
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) publish(snap Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// startTickingLocked launches the tick goroutine. Caller holds e.mu.
func (e *Engine) startTickingLocked() {
	if e.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	t := e.newTicker(e.interval)
	e.stopTick, e.tickDone = stop, done

	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-t.C():
				e.Tick(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// detachTickerLocked signals the tick goroutine to stop and returns the
// channel closed when it has exited. Caller holds e.mu and must wait on the
// result only after releasing it.
func (e *Engine) detachTickerLocked() chan struct{} {
	if e.stopTick == nil {
		return nil
	}
	close(e.stopTick)
	done := e.tickDone
	e.stopTick, e.tickDone = nil, nil
	return done
}

func waitTicker(done chan struct{}) {
	if done != nil {
		<-done
	}
}

// Ticking reports whether the tick goroutine is running.
func (e *Engine) Ticking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTick != nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notify sends an externally triggered event (e.g. the shift-end scheduler)
// through the same logged, non-fatal path as engine events.
func (e *Engine) Notify(ctx context.Context, ev Event) {
	e.dispatch(ctx, ev)
}

func (e *Engine) dispatch(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		var derr *generic.NotificationDispatchError
		if !errors.As(err, &derr) {
			err = &generic.NotificationDispatchError{Category: string(ev.Category), Err: err}
		}
		e.log.Warn().Err(err).Str("category", string(ev.Category)).Msg("Notification dispatch failed")
	}
}
