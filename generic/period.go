package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The window used for statistics
// =============================================================================

// Period is a closed range [Start, End]. A zero Start means unbounded.
//
// Examples (now = Wed 2025-03-12 15:00 local):
//   - today: [2025-03-12 00:00, now]
//   - week:  [2025-03-10 00:00 (Monday), now]
//   - month: [2025-03-01 00:00, now]
//   - all:   everything up to now
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is inside the period. The end bound is
// inclusive so that a session started exactly "now" is still counted.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

func (p Period) String() string {
	start := "-inf"
	if !p.Start.IsZero() {
		start = p.Start.Format(time.RFC3339)
	}
	return "[" + start + ", " + p.End.Format(time.RFC3339) + "]"
}

// PeriodType names the statistics windows offered to callers.
type PeriodType string

const (
	PeriodToday PeriodType = "today"
	PeriodWeek  PeriodType = "week"  // Monday 00:00 local through now
	PeriodMonth PeriodType = "month" // 1st 00:00 local through now
	PeriodAll   PeriodType = "all"
)

// ParsePeriodType validates a period name. Empty defaults to today.
func ParsePeriodType(s string) (PeriodType, error) {
	switch PeriodType(s) {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return PeriodType(s), nil
	default:
		return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
	}
}

// PeriodFor returns the window of the given type ending at now.
func (pt PeriodType) PeriodFor(now time.Time) Period {
	switch pt {
	case PeriodToday:
		return Period{Start: StartOfDay(now), End: now}
	case PeriodWeek:
		return Period{Start: StartOfWeek(now), End: now}
	case PeriodMonth:
		return Period{Start: StartOfMonth(now), End: now}
	default:
		return Period{End: now}
	}
}
