/*
ledger.go - Session history and the single active session

PURPOSE:
  The SessionLedger holds every completed WorkSession in completion order
  plus the at-most-one active session. It is the only mutable shared state
  of the engine; Engine is its sole writer.

INVARIANTS:
  1. APPEND-ONLY: completed sessions are never edited, only appended
  2. SINGLE ACTIVE: at most one active session system-wide
  3. DURABLE FIRST: memory only changes after the store accepted the write
     (except AddCompleted, which reports a failed save without rollback)

CRASH RECOVERY:
  EndWork saves the history (with the finished session) before it removes
  the persisted active record. Load therefore treats a persisted active
  session whose id already appears in history as finished, and any other
  persisted active session as still running from its original StartTime.

STATISTICS:
  TodaysSessions, FilterByPeriod, Aggregate and GroupByDay are pure reads
  recomputed on every call.

SEE ALSO:
  - engine.go: Lifecycle operations that write to the ledger
  - store/gateway.go: Repository implementation
*/
package worktime

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// Repository is the persistence the worktime domain needs.
type Repository interface {
	// LoadWageConfig returns found=false when nothing was saved yet.
	LoadWageConfig(ctx context.Context) (cfg WageConfig, found bool, err error)
	SaveWageConfig(ctx context.Context, cfg WageConfig) error

	LoadHistory(ctx context.Context) ([]WorkSession, error)
	SaveHistory(ctx context.Context, history []WorkSession) error

	// LoadActive returns nil when idle.
	LoadActive(ctx context.Context) (*WorkSession, error)
	SaveActive(ctx context.Context, s WorkSession) error
	ClearActive(ctx context.Context) error
}

// =============================================================================
// SESSION LEDGER
// =============================================================================

type SessionLedger struct {
	repo Repository

	mu      sync.RWMutex
	history []WorkSession
	active  *WorkSession
}

func NewSessionLedger(repo Repository) *SessionLedger {
	return &SessionLedger{repo: repo}
}

// Load replaces in-memory state with the persisted state and returns the
// active session to resume, if any.
func (l *SessionLedger) Load(ctx context.Context) (*WorkSession, error) {
	history, err := l.repo.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}
	active, err := l.repo.LoadActive(ctx)
	if err != nil {
		return nil, err
	}

	if active != nil && slices.ContainsFunc(history, func(s WorkSession) bool { return s.ID == active.ID }) {
		// Completed but the active record was not removed before exit.
		if err := l.repo.ClearActive(ctx); err != nil {
			return nil, err
		}
		active = nil
	}

	l.mu.Lock()
	l.history = history
	l.active = active
	l.mu.Unlock()

	if active == nil {
		return nil, nil
	}
	resumed := *active
	return &resumed, nil
}

// Active returns the running session.
func (l *SessionLedger) Active() (WorkSession, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.active == nil {
		return WorkSession{}, false
	}
	return *l.active, true
}

// History returns a copy of completed sessions in completion order.
func (l *SessionLedger) History() []WorkSession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.history)
}

// Len returns the number of completed sessions.
func (l *SessionLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// AddCompleted appends a completed session and persists the full history.
// A failed save is returned but the append is kept in memory.
func (l *SessionLedger) AddCompleted(ctx context.Context, s WorkSession) error {
	if s.IsActive() {
		return &generic.ValidationError{Field: "end_time", Message: "cannot add an active session to history"}
	}
	if err := s.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.history = append(l.history, s)
	snapshot := slices.Clone(l.history)
	l.mu.Unlock()

	return l.repo.SaveHistory(ctx, snapshot)
}

// begin persists s as the active session, then records it in memory.
func (l *SessionLedger) begin(ctx context.Context, s WorkSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return generic.ErrAlreadyWorking
	}
	if err := l.repo.SaveActive(ctx, s); err != nil {
		return err
	}
	l.active = &s
	return nil
}

// markLunch records on the active session that the lunch milestone was sent.
// The in-memory flag is set even when the save fails.
func (l *SessionLedger) markLunch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return generic.ErrNotWorking
	}
	l.active.LunchNotified = true
	return l.repo.SaveActive(ctx, *l.active)
}

// finish moves the completed session from active to history.
// History is made durable before the active record is removed.
// The returned clearErr reports a failure of that second step only; the
// session is already safe in history and Load will clean the record up.
func (l *SessionLedger) finish(ctx context.Context, done WorkSession) (clearErr error, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil || l.active.ID != done.ID {
		return nil, generic.ErrNotWorking
	}

	next := append(slices.Clone(l.history), done)
	if err := l.repo.SaveHistory(ctx, next); err != nil {
		return nil, err
	}
	l.history = next
	l.active = nil

	return l.repo.ClearActive(ctx), nil
}

// RemoveAll clears history and the active session, in the store first.
func (l *SessionLedger) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.SaveHistory(ctx, []WorkSession{}); err != nil {
		return err
	}
	if err := l.repo.ClearActive(ctx); err != nil {
		return err
	}
	l.history = nil
	l.active = nil
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// TodaysSessions yields completed sessions whose StartTime is on now's
// calendar day. Each range over the result re-reads the ledger.
func (l *SessionLedger) TodaysSessions(now time.Time) iter.Seq[WorkSession] {
	return func(yield func(WorkSession) bool) {
		for _, s := range l.History() {
			if !generic.SameDay(now, s.StartTime) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// FilterByPeriod returns completed sessions whose StartTime is in the period.
func (l *SessionLedger) FilterByPeriod(pt generic.PeriodType, now time.Time) []WorkSession {
	period := pt.PeriodFor(now)
	var out []WorkSession
	for _, s := range l.History() {
		if period.Contains(s.StartTime) {
			out = append(out, s)
		}
	}
	return out
}

// Stats aggregates the sessions of a period.
func (l *SessionLedger) Stats(pt generic.PeriodType, now time.Time) Summary {
	return Aggregate(slices.Values(l.FilterByPeriod(pt, now)))
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Summary is the fold of a set of sessions.
type Summary struct {
	SessionCount           int
	TotalWorkMinutes       int
	RegularMinutes         int
	OvertimeMinutes        int
	ServiceOvertimeMinutes int
	RegularIncome          decimal.Decimal
	OvertimeIncome         decimal.Decimal
	TotalIncome            decimal.Decimal
	TotalServiceLoss       decimal.Decimal
}

// Aggregate folds sessions into totals. Pure.
func Aggregate(sessions iter.Seq[WorkSession]) Summary {
	sum := Summary{
		RegularIncome:    decimal.Zero,
		OvertimeIncome:   decimal.Zero,
		TotalIncome:      decimal.Zero,
		TotalServiceLoss: decimal.Zero,
	}
	for s := range sessions {
		sum.SessionCount++
		sum.TotalWorkMinutes += s.TotalMinutes()
		sum.RegularMinutes += s.RegularMinutes
		sum.OvertimeMinutes += s.OvertimeMinutes
		sum.ServiceOvertimeMinutes += s.ServiceOvertimeMinutes
		sum.RegularIncome = sum.RegularIncome.Add(s.RegularIncome)
		sum.OvertimeIncome = sum.OvertimeIncome.Add(s.OvertimeIncome)
		sum.TotalIncome = sum.TotalIncome.Add(s.TotalIncome())
		sum.TotalServiceLoss = sum.TotalServiceLoss.Add(s.ServiceOvertimeLoss)
	}
	return sum
}

// DailySummary groups the sessions started on one calendar day.
type DailySummary struct {
	Day      time.Time // midnight in the grouping location
	Summary  Summary
	Sessions []WorkSession
}

// GroupByDay buckets sessions by the calendar day of StartTime in loc, newest
// day first. Pass the location of the clock used for period filtering so both
// agree on day boundaries. A nil loc means time.Local.
func GroupByDay(sessions []WorkSession, loc *time.Location) []DailySummary {
	if loc == nil {
		loc = time.Local
	}
	byDay := make(map[time.Time][]WorkSession)
	for _, s := range sessions {
		day := generic.StartOfDay(s.StartTime.In(loc))
		byDay[day] = append(byDay[day], s)
	}

	out := make([]DailySummary, 0, len(byDay))
	for day, list := range byDay {
		out = append(out, DailySummary{Day: day, Summary: Aggregate(slices.Values(list)), Sessions: list})
	}
	slices.SortFunc(out, func(a, b DailySummary) int { return b.Day.Compare(a.Day) })
	return out
}
