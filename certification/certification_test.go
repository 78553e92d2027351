package certification_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/generic"
	memstore "github.com/warp/worktime-engine/generic/store"
	"github.com/warp/worktime-engine/store"
)

var today = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func plan(cost, company, transfer, hours int) certification.Plan {
	return certification.Plan{
		Name:                   "Cloud Architect",
		Cost:                   generic.Dec(cost),
		StudyHours:             hours,
		CompanySalaryIncrease:  generic.Dec(company),
		TransferSalaryIncrease: generic.Dec(transfer),
		TargetDate:             today.AddDate(0, 3, 0),
		Status:                 certification.StatusPlanning,
	}
}

// =============================================================================
// ROI
// =============================================================================

func TestCalculate_WageFloorDominatesCheapPlans(t *testing.T) {
	// GIVEN: cost 50000, +10000/month at the company, 200 study hours
	// WHEN: evaluating
	// THEN: break-even is fast but 600/h study wage is below every tier floor
	r := certification.Calculate(plan(50000, 10000, 0, 200))

	assert.True(t, r.CompanyAnnualIncrease.Equal(generic.Dec(120000)))
	assert.InDelta(t, 0.4167, r.CompanyROI, 0.0001)
	assert.True(t, r.CompanyStudyWage.Equal(generic.Dec(600)))
	assert.Equal(t, certification.RatingPoor, r.CompanyRating)
}

func TestCalculate_ZeroIncreaseIsInfinite(t *testing.T) {
	r := certification.Calculate(plan(50000, 0, 0, 200))

	assert.True(t, math.IsInf(r.CompanyROI, 1))
	assert.True(t, r.CompanyStudyWage.IsZero())
	assert.Equal(t, certification.RatingPoor, r.CompanyRating)
	assert.True(t, math.IsInf(r.TransferROI, 1))
}

func TestCalculate_FreePlanBreaksEvenImmediately(t *testing.T) {
	r := certification.Calculate(plan(0, 10000, 0, 20))

	assert.Equal(t, 0.0, r.CompanyROI)
	assert.Equal(t, certification.RatingExcellent, r.CompanyRating) // 120000/20 = 6000/h
}

func TestCalculate_Properties(t *testing.T) {
	// For every raise profile, over a sweep of cost and study hours:
	//   calculating twice gives the same result
	//   a higher cost never lowers either ROI
	//   more study hours never raise either study wage
	raises := []struct{ company, transfer int }{
		{0, 0}, {10000, 0}, {0, 30000}, {7, 3}, {250000, 125000},
	}
	costs := []int{0, 1, 999, 50000, 123457, 5000000}
	hours := []int{1, 2, 3, 40, 199, 200, 1000}

	for _, raise := range raises {
		for _, h := range hours {
			var prev *certification.ROIResult
			for _, cost := range costs {
				p := plan(cost, raise.company, raise.transfer, h)
				r := certification.Calculate(p)

				again := certification.Calculate(p)
				assert.Equal(t, r.CompanyROI, again.CompanyROI)
				assert.Equal(t, r.TransferROI, again.TransferROI)
				assert.True(t, r.CompanyStudyWage.Equal(again.CompanyStudyWage))
				assert.True(t, r.TransferStudyWage.Equal(again.TransferStudyWage))
				assert.Equal(t, r.CompanyRating, again.CompanyRating)
				assert.Equal(t, r.TransferRating, again.TransferRating)

				if prev != nil {
					assert.GreaterOrEqual(t, r.CompanyROI, prev.CompanyROI, "cost=%d raise=%v", cost, raise)
					assert.GreaterOrEqual(t, r.TransferROI, prev.TransferROI, "cost=%d raise=%v", cost, raise)
				}
				prev = &r
			}
		}

		for _, cost := range costs {
			var prev *certification.ROIResult
			for _, h := range hours {
				r := certification.Calculate(plan(cost, raise.company, raise.transfer, h))
				if prev != nil {
					assert.True(t, r.CompanyStudyWage.LessThanOrEqual(prev.CompanyStudyWage), "hours=%d raise=%v", h, raise)
					assert.True(t, r.TransferStudyWage.LessThanOrEqual(prev.TransferStudyWage), "hours=%d raise=%v", h, raise)
				}
				prev = &r
			}
		}
	}
}

func TestRate_Tiers(t *testing.T) {
	tests := []struct {
		name  string
		years float64
		wage  int
		want  certification.Rating
	}{
		{"excellent", 0.5, 3000, certification.RatingExcellent},
		{"excellent bounds inclusive", 1.0, 3000, certification.RatingExcellent},
		{"fast but low wage falls to good", 0.5, 2500, certification.RatingGood},
		{"good", 2.0, 2000, certification.RatingGood},
		{"fair", 2.5, 1500, certification.RatingFair},
		{"slow", 3.01, 10000, certification.RatingPoor},
		{"low wage", 0.1, 999, certification.RatingPoor},
		{"infinite", math.Inf(1), 10000, certification.RatingPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, certification.Rate(tt.years, generic.Dec(tt.wage)))
		})
	}
}

func TestBestRating(t *testing.T) {
	// Company: 120000/yr over 40h = 3000/h, break-even 0.83y -> excellent
	// Transfer: nothing -> poor
	r := certification.Calculate(plan(100000, 10000, 0, 40))
	assert.Equal(t, certification.RatingExcellent, r.CompanyRating)
	assert.Equal(t, certification.RatingPoor, r.TransferRating)
	assert.Equal(t, certification.RatingExcellent, r.BestRating())

	r = certification.Calculate(plan(100000, 0, 10000, 40))
	assert.Equal(t, certification.RatingExcellent, r.BestRating())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestPlanValidate(t *testing.T) {
	require.NoError(t, plan(1, 0, 0, 1).Validate())

	tests := []struct {
		name   string
		mutate func(*certification.Plan)
	}{
		{"blank name", func(p *certification.Plan) { p.Name = "   " }},
		{"long name", func(p *certification.Plan) { p.Name = strings.Repeat("x", 51) }},
		{"negative cost", func(p *certification.Plan) { p.Cost = decimal.NewFromInt(-1) }},
		{"zero study hours", func(p *certification.Plan) { p.StudyHours = 0 }},
		{"negative company increase", func(p *certification.Plan) { p.CompanySalaryIncrease = decimal.NewFromInt(-1) }},
		{"unknown status", func(p *certification.Plan) { p.Status = "dreaming" }},
		{"acquired without date", func(p *certification.Plan) { p.Status = certification.StatusAcquired }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plan(1, 0, 0, 1)
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), generic.ErrValidation)
		})
	}
}

func TestPlanValidate_NameLengthCountsRunes(t *testing.T) {
	p := plan(1, 0, 0, 1)
	p.Name = strings.Repeat("자", 50)
	assert.NoError(t, p.Validate())
}

func TestPlanSetStatus(t *testing.T) {
	p := plan(1, 0, 0, 1)

	acquired := p.SetStatus(certification.StatusAcquired, today)
	require.NotNil(t, acquired.AcquiredDate)
	assert.Equal(t, today, *acquired.AcquiredDate)
	assert.Nil(t, p.AcquiredDate, "receiver is not modified")

	again := acquired.SetStatus(certification.StatusAcquired, today.Add(time.Hour))
	assert.Equal(t, today, *again.AcquiredDate, "re-acquiring keeps the first date")

	paused := acquired.SetStatus(certification.StatusPaused, today)
	assert.Nil(t, paused.AcquiredDate)
}

// =============================================================================
// PLAN BOOK
// =============================================================================

func newBook(t *testing.T) (*certification.PlanBook, *memstore.Memory, *generic.FixedClock) {
	t.Helper()
	kv := memstore.NewMemory()
	clock := generic.NewFixedClock(today)
	b := certification.NewPlanBook(store.NewGateway(kv), clock)
	require.NoError(t, b.Load(context.Background()))
	return b, kv, clock
}

func TestPlanBook_AddAssignsIdentity(t *testing.T) {
	b, kv, _ := newBook(t)
	ctx := context.Background()

	in := plan(50000, 10000, 0, 200)
	in.ID = "caller-id"
	in.Status = certification.StatusAcquired

	p, err := b.Add(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, "caller-id", p.ID)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, today, p.CreatedAt)
	assert.Equal(t, certification.StatusPlanning, p.Status)
	assert.Nil(t, p.AcquiredDate)

	reloaded := certification.NewPlanBook(store.NewGateway(kv), nil)
	require.NoError(t, reloaded.Load(ctx))
	require.Len(t, reloaded.List(), 1)
	assert.True(t, reloaded.List()[0].Equal(p))
}

func TestPlanBook_AddRejectsInvalid(t *testing.T) {
	b, _, _ := newBook(t)

	bad := plan(-1, 0, 0, 10)
	_, err := b.Add(context.Background(), bad)
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Empty(t, b.List())
}

func TestPlanBook_StoresTrimmedName(t *testing.T) {
	b, kv, _ := newBook(t)
	ctx := context.Background()

	in := plan(50000, 10000, 0, 200)
	in.Name = "  AWS SAA \t"
	p, err := b.Add(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "AWS SAA", p.Name)

	p.Name = " CKA  "
	_, err = b.Update(ctx, p)
	require.NoError(t, err)

	reloaded := certification.NewPlanBook(store.NewGateway(kv), nil)
	require.NoError(t, reloaded.Load(ctx))
	got, err := reloaded.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "CKA", got.Name)
}

func TestPlanBook_UpdatePreservesCreatedAt(t *testing.T) {
	b, _, clock := newBook(t)
	ctx := context.Background()

	p, err := b.Add(ctx, plan(50000, 10000, 0, 200))
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	p.Name = "Cloud Architect Pro"
	p.CreatedAt = time.Time{}
	p.Status = ""

	updated, err := b.Update(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, today, updated.CreatedAt)
	assert.Equal(t, certification.StatusPlanning, updated.Status, "empty status keeps the current one")

	got, err := b.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cloud Architect Pro", got.Name)
}

func TestPlanBook_NotFound(t *testing.T) {
	b, _, _ := newBook(t)
	ctx := context.Background()

	_, err := b.Get("missing")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	missing := plan(1, 0, 0, 1)
	missing.ID = "missing"
	_, err = b.Update(ctx, missing)
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = b.SetStatus(ctx, "missing", certification.StatusStudying)
	assert.ErrorIs(t, err, generic.ErrNotFound)

	assert.ErrorIs(t, b.Remove(ctx, "missing"), generic.ErrNotFound)
}

func TestPlanBook_SetStatus(t *testing.T) {
	b, _, clock := newBook(t)
	ctx := context.Background()

	p, err := b.Add(ctx, plan(50000, 10000, 0, 200))
	require.NoError(t, err)

	_, err = b.SetStatus(ctx, p.ID, "dreaming")
	assert.ErrorIs(t, err, generic.ErrValidation)

	clock.Advance(24 * time.Hour)
	acquired, err := b.SetStatus(ctx, p.ID, certification.StatusAcquired)
	require.NoError(t, err)
	require.NotNil(t, acquired.AcquiredDate)
	assert.Equal(t, today.Add(24*time.Hour), *acquired.AcquiredDate)

	back, err := b.SetStatus(ctx, p.ID, certification.StatusStudying)
	require.NoError(t, err)
	assert.Nil(t, back.AcquiredDate)
}

func TestPlanBook_FailedSaveLeavesMemoryUnchanged(t *testing.T) {
	b, kv, _ := newBook(t)
	ctx := context.Background()

	p, err := b.Add(ctx, plan(50000, 10000, 0, 200))
	require.NoError(t, err)

	kv.SetFailWrites(true)
	_, err = b.Add(ctx, plan(1, 0, 0, 1))
	assert.ErrorIs(t, err, generic.ErrPersistence)
	assert.ErrorIs(t, b.Remove(ctx, p.ID), generic.ErrPersistence)
	assert.Len(t, b.List(), 1)
}

func TestPlanBook_RemoveAndRemoveAll(t *testing.T) {
	b, _, _ := newBook(t)
	ctx := context.Background()

	a, err := b.Add(ctx, plan(1, 0, 0, 1))
	require.NoError(t, err)
	_, err = b.Add(ctx, plan(2, 0, 0, 1))
	require.NoError(t, err)

	require.NoError(t, b.Remove(ctx, a.ID))
	assert.Len(t, b.List(), 1)

	require.NoError(t, b.RemoveAll(ctx))
	assert.Empty(t, b.List())
}

func TestPlanBook_Summary(t *testing.T) {
	b, _, _ := newBook(t)
	ctx := context.Background()

	soon := plan(1000, 100, 200, 10)
	soon.TargetDate = today.AddDate(0, 1, 0)
	late := plan(2000, 300, 0, 20)
	late.TargetDate = today.AddDate(0, 6, 0)
	past := plan(500, 0, 0, 5)
	past.TargetDate = today.AddDate(0, -1, 0)
	dropped := plan(9999, 9999, 9999, 99)
	dropped.TargetDate = today.AddDate(0, 0, 1)

	var droppedID string
	for i, p := range []certification.Plan{soon, late, past, dropped} {
		added, err := b.Add(ctx, p)
		require.NoError(t, err)
		if i == 3 {
			droppedID = added.ID
		}
	}
	_, err := b.SetStatus(ctx, droppedID, certification.StatusCancelled)
	require.NoError(t, err)

	sum := b.Summary()
	assert.Equal(t, 4, sum.PlanCount)
	assert.Equal(t, 3, sum.ByStatus[certification.StatusPlanning])
	assert.Equal(t, 1, sum.ByStatus[certification.StatusCancelled])
	assert.True(t, sum.TotalCost.Equal(generic.Dec(3500)), "cancelled plans are excluded")
	assert.Equal(t, 35, sum.TotalStudyHours)
	assert.True(t, sum.TotalCompanyMonthlyIncrease.Equal(generic.Dec(400)))
	assert.True(t, sum.TotalTransferMonthlyIncrease.Equal(generic.Dec(200)))
	require.NotNil(t, sum.NextTarget)
	assert.Equal(t, soon.TargetDate, *sum.NextTarget)
}
