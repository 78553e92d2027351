package worktime_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/generic"
	memstore "github.com/warp/worktime-engine/generic/store"
	"github.com/warp/worktime-engine/store"
	"github.com/warp/worktime-engine/worktime"
)

// completed builds a paid session in the local zone.
func completed(t *testing.T, id string, start time.Time, minutes int) worktime.WorkSession {
	t.Helper()
	s := worktime.NewSession(id, worktime.DefaultWageConfig(), start)
	done, err := s.Complete(start.Add(time.Duration(minutes)*time.Minute), worktime.ClassificationPaid)
	require.NoError(t, err)
	return done
}

func local(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.Local)
}

func newLedger(t *testing.T, sessions ...worktime.WorkSession) *worktime.SessionLedger {
	t.Helper()
	ctx := context.Background()
	l := worktime.NewSessionLedger(store.NewGateway(memstore.NewMemory()))
	_, err := l.Load(ctx)
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, l.AddCompleted(ctx, s))
	}
	return l
}

func ids(sessions []worktime.WorkSession) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

// =============================================================================
// HISTORY
// =============================================================================

func TestAddCompleted_RejectsActiveAndInvalid(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	active := worktime.NewSession("a", worktime.DefaultWageConfig(), local(10, 9))
	assert.ErrorIs(t, l.AddCompleted(ctx, active), generic.ErrValidation)

	broken := completed(t, "b", local(10, 9), 60)
	broken.RegularMinutes++
	assert.ErrorIs(t, l.AddCompleted(ctx, broken), generic.ErrValidation)

	assert.Equal(t, 0, l.Len())
}

func TestAddCompleted_PersistsInOrder(t *testing.T) {
	ctx := context.Background()
	kv := memstore.NewMemory()
	l := worktime.NewSessionLedger(store.NewGateway(kv))

	require.NoError(t, l.AddCompleted(ctx, completed(t, "s1", local(10, 9), 60)))
	require.NoError(t, l.AddCompleted(ctx, completed(t, "s2", local(11, 9), 60)))

	reloaded := worktime.NewSessionLedger(store.NewGateway(kv))
	resumed, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, resumed)
	assert.Equal(t, []string{"s1", "s2"}, ids(reloaded.History()))
}

func TestAddCompleted_KeepsAppendWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	kv := memstore.NewMemory()
	l := worktime.NewSessionLedger(store.NewGateway(kv))
	kv.SetFailWrites(true)

	err := l.AddCompleted(ctx, completed(t, "s1", local(10, 9), 60))
	assert.ErrorIs(t, err, generic.ErrPersistence)
	assert.Equal(t, 1, l.Len())
}

func TestHistory_ReturnsCopy(t *testing.T) {
	l := newLedger(t, completed(t, "s1", local(10, 9), 60))

	h := l.History()
	h[0].ID = "changed"
	assert.Equal(t, "s1", l.History()[0].ID)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestTodaysSessions(t *testing.T) {
	l := newLedger(t,
		completed(t, "yesterday", local(9, 9), 60),
		completed(t, "morning", local(10, 8), 60),
		completed(t, "evening", local(10, 19), 60),
	)

	got := slices.Collect(l.TodaysSessions(local(10, 22)))
	assert.Equal(t, []string{"morning", "evening"}, ids(got))

	// Stops early when the consumer does.
	for s := range l.TodaysSessions(local(10, 22)) {
		assert.Equal(t, "morning", s.ID)
		break
	}
}

func TestFilterByPeriod(t *testing.T) {
	// March 2025: the 10th is a Monday.
	l := newLedger(t,
		completed(t, "feb", time.Date(2025, time.February, 27, 9, 0, 0, 0, time.Local), 60),
		completed(t, "sun", local(9, 9), 60),
		completed(t, "mon", local(10, 9), 60),
		completed(t, "wed", local(12, 9), 60),
	)
	now := local(12, 18)

	assert.Equal(t, []string{"wed"}, ids(l.FilterByPeriod(generic.PeriodToday, now)))
	assert.Equal(t, []string{"mon", "wed"}, ids(l.FilterByPeriod(generic.PeriodWeek, now)))
	assert.Equal(t, []string{"sun", "mon", "wed"}, ids(l.FilterByPeriod(generic.PeriodMonth, now)))
	assert.Len(t, l.FilterByPeriod(generic.PeriodAll, now), 4)
}

func TestStats(t *testing.T) {
	l := newLedger(t,
		completed(t, "mon", local(10, 9), 600), // 480 regular + 120 overtime
		completed(t, "wed", local(12, 9), 240),
	)

	sum := l.Stats(generic.PeriodWeek, local(12, 18))
	assert.Equal(t, 2, sum.SessionCount)
	assert.Equal(t, 840, sum.TotalWorkMinutes)
	assert.Equal(t, 720, sum.RegularMinutes)
	assert.Equal(t, 120, sum.OvertimeMinutes)
	assertDec(t, "22500", sum.RegularIncome)
	assertDec(t, "4687.5", sum.OvertimeIncome)
	assertDec(t, "27187.5", sum.TotalIncome)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_Empty(t *testing.T) {
	sum := worktime.Aggregate(slices.Values([]worktime.WorkSession(nil)))
	assert.Equal(t, 0, sum.SessionCount)
	assert.True(t, sum.TotalIncome.IsZero())
	assert.True(t, sum.TotalServiceLoss.IsZero())
}

func TestAggregate_ServiceLossIsNotIncome(t *testing.T) {
	s := worktime.NewSession("svc", worktime.DefaultWageConfig(), at(9, 0))
	svc, err := s.Complete(at(19, 0), worktime.ClassificationService)
	require.NoError(t, err)

	sum := worktime.Aggregate(slices.Values([]worktime.WorkSession{svc}))
	assert.Equal(t, 120, sum.ServiceOvertimeMinutes)
	assertDec(t, "15000", sum.TotalIncome)
	assertDec(t, "4687.5", sum.TotalServiceLoss)
}

func TestGroupByDay_NewestFirst(t *testing.T) {
	days := worktime.GroupByDay([]worktime.WorkSession{
		completed(t, "a", local(10, 9), 60),
		completed(t, "b", local(12, 9), 60),
		completed(t, "c", local(10, 14), 120),
	}, time.Local)

	require.Len(t, days, 2)
	assert.Equal(t, local(12, 0), days[0].Day)
	assert.Equal(t, []string{"b"}, ids(days[0].Sessions))

	assert.Equal(t, local(10, 0), days[1].Day)
	assert.Equal(t, []string{"a", "c"}, ids(days[1].Sessions))
	assert.Equal(t, 180, days[1].Summary.TotalWorkMinutes)
	assertDec(t, "5625", days[1].Summary.TotalIncome)
}

func TestGroupByDay_MatchesTodayInClockZone(t *testing.T) {
	// GIVEN: a clock in UTC+9 and two sessions on its March 10th, one of
	// which falls on March 9th in UTC
	seoul := time.FixedZone("KST", 9*60*60)
	early := completed(t, "early", time.Date(2025, time.March, 10, 7, 0, 0, 0, seoul), 60)
	late := completed(t, "late", time.Date(2025, time.March, 10, 11, 0, 0, 0, seoul), 60)
	l := newLedger(t, early, late)
	now := time.Date(2025, time.March, 10, 20, 0, 0, 0, seoul)

	// WHEN: grouping today's sessions in the clock's zone
	today := l.FilterByPeriod(generic.PeriodToday, now)
	require.Equal(t, []string{"early", "late"}, ids(today))
	days := worktime.GroupByDay(today, now.Location())

	// THEN: they form a single day
	require.Len(t, days, 1)
	assert.True(t, days[0].Day.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, seoul)))
	assert.Equal(t, []string{"early", "late"}, ids(days[0].Sessions))

	// AND: grouping in UTC splits them
	assert.Len(t, worktime.GroupByDay(today, time.UTC), 2)
}
