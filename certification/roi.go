package certification

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// RATING
// =============================================================================

type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// tier pairs a maximum break-even time with a minimum study wage.
type tier struct {
	rating   Rating
	maxYears float64
	minWage  decimal.Decimal
}

// Evaluated in order; the first tier whose both bounds hold wins.
var tiers = []tier{
	{RatingExcellent, 1.0, decimal.NewFromInt(3000)},
	{RatingGood, 2.0, decimal.NewFromInt(2000)},
	{RatingFair, 3.0, decimal.NewFromInt(1000)},
}

// Rate maps break-even years and study wage to a rating. An infinite ROI
// never satisfies a tier and therefore rates poor.
func Rate(roiYears float64, studyWage decimal.Decimal) Rating {
	for _, t := range tiers {
		if roiYears <= t.maxYears && studyWage.GreaterThanOrEqual(t.minWage) {
			return t.rating
		}
	}
	return RatingPoor
}

// =============================================================================
// ROI RESULT
// =============================================================================

// ROIResult is derived from a Plan on demand.
// ROI values are years to break even; +Inf when the annual increase is zero.
type ROIResult struct {
	CompanyAnnualIncrease  decimal.Decimal
	TransferAnnualIncrease decimal.Decimal
	CompanyROI             float64
	TransferROI            float64
	CompanyStudyWage       decimal.Decimal
	TransferStudyWage      decimal.Decimal
	CompanyRating          Rating
	TransferRating         Rating
}

// Calculate evaluates a plan. Pure.
func Calculate(p Plan) ROIResult {
	companyAnnual := generic.Annualize(p.CompanySalaryIncrease)
	transferAnnual := generic.Annualize(p.TransferSalaryIncrease)

	r := ROIResult{
		CompanyAnnualIncrease:  companyAnnual,
		TransferAnnualIncrease: transferAnnual,
		CompanyROI:             breakEvenYears(p.Cost, companyAnnual),
		TransferROI:            breakEvenYears(p.Cost, transferAnnual),
		CompanyStudyWage:       studyWage(companyAnnual, p.StudyHours),
		TransferStudyWage:      studyWage(transferAnnual, p.StudyHours),
	}
	r.CompanyRating = Rate(r.CompanyROI, r.CompanyStudyWage)
	r.TransferRating = Rate(r.TransferROI, r.TransferStudyWage)
	return r
}

func breakEvenYears(cost, annual decimal.Decimal) float64 {
	if !annual.IsPositive() {
		return math.Inf(1)
	}
	return cost.Div(annual).InexactFloat64()
}

func studyWage(annual decimal.Decimal, hours int) decimal.Decimal {
	if hours <= 0 {
		return decimal.Zero
	}
	return annual.Div(generic.Dec(hours))
}

// BestRating returns the better of the company and transfer ratings.
func (r ROIResult) BestRating() Rating {
	if rank(r.TransferRating) < rank(r.CompanyRating) {
		return r.TransferRating
	}
	return r.CompanyRating
}

func rank(r Rating) int {
	for i, t := range tiers {
		if t.rating == r {
			return i
		}
	}
	return len(tiers)
}
