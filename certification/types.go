/*
Package certification evaluates study and certification plans as investments.

PURPOSE:
  A Plan records what a certification costs (money and study hours) and
  what it is expected to pay back as a monthly raise, either at the current
  company or after a transfer. The ROI evaluator turns that into
  years-to-break-even, a study wage (annual raise per study hour) and a
  rating.

KEY CONCEPTS:
  - Plan: the persisted plan entity and its status lifecycle
  - ROIResult: derived on demand, never persisted
  - PlanBook: in-memory collection backed by a Repository

STATUS LIFECYCLE:
  planning -> studying -> acquired
         \-> paused / cancelled (from any state)
  Acquired always carries AcquiredDate; leaving acquired clears it.

SEE ALSO:
  - roi.go: ROI formulas and rating tiers
  - book.go: CRUD
*/
package certification

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPlanning  Status = "planning"
	StatusStudying  Status = "studying"
	StatusAcquired  Status = "acquired"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPlanning, StatusStudying, StatusAcquired, StatusPaused, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
}

// =============================================================================
// PLAN
// =============================================================================

const MaxNameLength = 50

// Plan is a certification or study plan. Increases are monthly amounts.
type Plan struct {
	ID                     string
	Name                   string
	Cost                   decimal.Decimal
	StudyHours             int
	CompanySalaryIncrease  decimal.Decimal
	TransferSalaryIncrease decimal.Decimal
	CreatedAt              time.Time
	TargetDate             time.Time
	AcquiredDate           *time.Time
	Status                 Status
}

// Validate enforces the field constraints. Negative cost or study hours are always rejected.
func (p Plan) Validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return &generic.ValidationError{Field: "name", Message: "required"}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &generic.ValidationError{Field: "name", Message: fmt.Sprintf("at most %d characters", MaxNameLength)}
	case p.Cost.IsNegative():
		return &generic.ValidationError{Field: "cost", Message: "must be >= 0"}
	case p.StudyHours < 1:
		return &generic.ValidationError{Field: "study_hours", Message: "must be >= 1"}
	case p.CompanySalaryIncrease.IsNegative():
		return &generic.ValidationError{Field: "company_salary_increase", Message: "must be >= 0"}
	case p.TransferSalaryIncrease.IsNegative():
		return &generic.ValidationError{Field: "transfer_salary_increase", Message: "must be >= 0"}
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	if p.Status == StatusAcquired && p.AcquiredDate == nil {
		return &generic.ValidationError{Field: "acquired_date", Message: "required when acquired"}
	}
	return nil
}

// SetStatus returns a copy moved to status. Acquired stamps AcquiredDate
// with at; any other status clears it.
func (p Plan) SetStatus(status Status, at time.Time) Plan {
	p.Status = status
	if status == StatusAcquired {
		if p.AcquiredDate == nil {
			a := at
			p.AcquiredDate = &a
		}
	} else {
		p.AcquiredDate = nil
	}
	return p
}

// Equal compares decimals and times by value.
func (p Plan) Equal(o Plan) bool {
	sameAcquired := (p.AcquiredDate == nil && o.AcquiredDate == nil) ||
		(p.AcquiredDate != nil && o.AcquiredDate != nil && p.AcquiredDate.Equal(*o.AcquiredDate))
	return p.ID == o.ID &&
		p.Name == o.Name &&
		p.Cost.Equal(o.Cost) &&
		p.StudyHours == o.StudyHours &&
		p.CompanySalaryIncrease.Equal(o.CompanySalaryIncrease) &&
		p.TransferSalaryIncrease.Equal(o.TransferSalaryIncrease) &&
		p.CreatedAt.Equal(o.CreatedAt) &&
		p.TargetDate.Equal(o.TargetDate) &&
		sameAcquired &&
		p.Status == o.Status
}
