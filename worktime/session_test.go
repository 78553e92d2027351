package worktime_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

var (
	hourly1875 = generic.Dec(1875)
	mult125    = generic.MustParseDecimal("1.25")
)

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
}

// =============================================================================
// PARTITION SCENARIOS
// =============================================================================

func TestComplete_NoOvertime(t *testing.T) {
	// GIVEN: 1875/h, 8h schedule
	// WHEN: 09:00 -> 17:00
	// THEN: 480 regular minutes, 15000 income
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	done, err := s.Complete(at(17, 0), worktime.ClassificationPaid)
	require.NoError(t, err)

	assert.Equal(t, 480, done.RegularMinutes)
	assert.Equal(t, 0, done.OvertimeMinutes)
	assert.Equal(t, 0, done.ServiceOvertimeMinutes)
	assertDec(t, "15000", done.RegularIncome)
	assertDec(t, "15000", done.TotalIncome())
	assert.False(t, done.IsServiceOvertime)
	assert.NoError(t, done.Validate())
}

func TestComplete_PaidOvertime(t *testing.T) {
	// WHEN: 09:00 -> 19:00, paid
	// THEN: 120 overtime minutes at 1.25x
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	done, err := s.Complete(at(19, 0), worktime.ClassificationPaid)
	require.NoError(t, err)

	assert.Equal(t, 480, done.RegularMinutes)
	assert.Equal(t, 120, done.OvertimeMinutes)
	assertDec(t, "4687.5", done.OvertimeIncome)
	assertDec(t, "19687.5", done.TotalIncome())
	assert.True(t, done.ServiceOvertimeLoss.IsZero())
}

func TestComplete_ServiceOvertime(t *testing.T) {
	// WHEN: 09:00 -> 19:00, service
	// THEN: loss tracked separately, income unchanged
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	done, err := s.Complete(at(19, 0), worktime.ClassificationService)
	require.NoError(t, err)

	assert.Equal(t, 120, done.ServiceOvertimeMinutes)
	assert.Equal(t, 0, done.OvertimeMinutes)
	assertDec(t, "4687.5", done.ServiceOvertimeLoss)
	assert.True(t, done.OvertimeIncome.IsZero())
	assertDec(t, "15000", done.TotalIncome())
	assert.True(t, done.IsServiceOvertime)
}

func TestComplete_ServiceWithoutExcessIsNotServiceOvertime(t *testing.T) {
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	done, err := s.Complete(at(12, 0), worktime.ClassificationService)
	require.NoError(t, err)

	assert.Equal(t, 180, done.RegularMinutes)
	assert.False(t, done.IsServiceOvertime)
}

func TestComplete_EndBeforeStartClampsToZero(t *testing.T) {
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	done, err := s.Complete(at(8, 0), worktime.ClassificationPaid)
	require.NoError(t, err)

	assert.Equal(t, 0, done.TotalMinutes())
	assert.Equal(t, at(9, 0), *done.EndTime)
	assert.NoError(t, done.Validate())
}

func TestComplete_Twice(t *testing.T) {
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))
	done, err := s.Complete(at(10, 0), worktime.ClassificationPaid)
	require.NoError(t, err)

	_, err = done.Complete(at(11, 0), worktime.ClassificationPaid)
	assert.ErrorIs(t, err, generic.ErrNotWorking)
}

func TestComputePartition_Properties(t *testing.T) {
	// For every duration and classification:
	//   regular + overtime + service == total
	//   regular <= scheduled
	//   overtime and service are never both positive
	//   regular income depends only on regular minutes
	for _, class := range []worktime.Classification{worktime.ClassificationPaid, worktime.ClassificationService} {
		for total := 0; total <= 16*60; total += 7 {
			p := worktime.ComputePartition(hourly1875, mult125, 480, total, class)

			assert.Equal(t, total, p.RegularMinutes+p.OvertimeMinutes+p.ServiceOvertimeMinutes, "total=%d", total)
			assert.LessOrEqual(t, p.RegularMinutes, 480)
			assert.False(t, p.OvertimeMinutes > 0 && p.ServiceOvertimeMinutes > 0)
			assert.True(t, p.RegularIncome.Equal(generic.MinuteIncome(hourly1875, p.RegularMinutes)))
		}
	}
}

func TestComputePartition_ClassificationOnlyMovesTheExcess(t *testing.T) {
	paid := worktime.ComputePartition(hourly1875, mult125, 480, 600, worktime.ClassificationPaid)
	service := worktime.ComputePartition(hourly1875, mult125, 480, 600, worktime.ClassificationService)

	assert.True(t, paid.RegularIncome.Equal(service.RegularIncome))
	assert.True(t, paid.OvertimeIncome.Equal(service.ServiceOvertimeLoss))
	assert.Equal(t, paid.OvertimeMinutes, service.ServiceOvertimeMinutes)
}

// =============================================================================
// LIVE STATE
// =============================================================================

func TestSnapshotAt(t *testing.T) {
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))

	snap := s.SnapshotAt(at(9, 0).Add(90*time.Second + 30*time.Minute))
	assert.Equal(t, int64(31*60+30), snap.ElapsedSeconds)
	assert.Equal(t, 31, snap.ElapsedMinutes)
	assert.False(t, snap.IsOvertime)
	assertDec(t, "968.75", snap.CurrentEarnings) // 31 * 31.25

	snap = s.SnapshotAt(at(18, 0))
	assert.True(t, snap.IsOvertime)
	assert.Equal(t, 60, snap.OvertimeMinutes)
	assertDec(t, "17343.75", snap.CurrentEarnings) // 15000 + 60*31.25*1.25
}

func TestIsOvertime(t *testing.T) {
	s := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0))
	assert.False(t, s.IsOvertime(at(17, 0)))
	assert.True(t, s.IsOvertime(at(17, 1)))
}

func TestValidate_RejectsBrokenRecords(t *testing.T) {
	good, err := worktime.NewSession("s1", worktime.DefaultWageConfig(), at(9, 0)).Complete(at(19, 0), worktime.ClassificationPaid)
	require.NoError(t, err)
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(*worktime.WorkSession)
	}{
		{"missing id", func(s *worktime.WorkSession) { s.ID = "" }},
		{"partition mismatch", func(s *worktime.WorkSession) { s.RegularMinutes-- }},
		{"both overtime kinds", func(s *worktime.WorkSession) { s.ServiceOvertimeMinutes = 1; s.RegularMinutes-- }},
		{"regular above schedule", func(s *worktime.WorkSession) { s.RegularMinutes += 10; s.OvertimeMinutes -= 10 }},
		{"negative income", func(s *worktime.WorkSession) { s.OvertimeIncome = dec("-1") }},
		{"multiplier below one", func(s *worktime.WorkSession) { s.OvertimeMultiplier = dec("0.9") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), generic.ErrValidation)
		})
	}
}

func TestParseClassification(t *testing.T) {
	c, err := worktime.ParseClassification("")
	require.NoError(t, err)
	assert.Equal(t, worktime.ClassificationPaid, c)

	c, err = worktime.ParseClassification("service")
	require.NoError(t, err)
	assert.Equal(t, worktime.ClassificationService, c)

	_, err = worktime.ParseClassification("volunteer")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// WAGE CONFIG
// =============================================================================

func TestWageConfig_Update(t *testing.T) {
	cfg := worktime.DefaultWageConfig()
	hours := 7

	next, err := cfg.Update(worktime.WageConfigUpdate{DailyWorkHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, 7, next.DailyWorkHours)
	assert.Equal(t, 420, next.ScheduledDailyMinutes())
	assert.Equal(t, 8, cfg.DailyWorkHours, "receiver is not modified")
}

func TestWageConfig_UpdateRejectsOutOfRange(t *testing.T) {
	zero := decimal.Zero
	low := dec("0.5")
	daily := 17
	hour := 24

	tests := []struct {
		name string
		u    worktime.WageConfigUpdate
	}{
		{"zero hourly", worktime.WageConfigUpdate{HourlySalary: &zero}},
		{"zero monthly", worktime.WageConfigUpdate{MonthlySalary: &zero}},
		{"multiplier below one", worktime.WageConfigUpdate{OvertimeMultiplier: &low}},
		{"daily hours above 16", worktime.WageConfigUpdate{DailyWorkHours: &daily}},
		{"end hour 24", worktime.WageConfigUpdate{EndHour: &hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := worktime.DefaultWageConfig().Update(tt.u)
			assert.ErrorIs(t, err, generic.ErrValidation)
		})
	}
}

func TestWageConfig_DeriveHourly(t *testing.T) {
	cfg := worktime.DefaultWageConfig()
	cfg.MonthlySalary = generic.Dec(320000)

	assertDec(t, "2000", cfg.DeriveHourly().HourlySalary)
	assertDec(t, "300000", worktime.DefaultWageConfig().DeriveMonthly().MonthlySalary)
}
