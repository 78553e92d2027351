package certification

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/generic"
)

// Repository persists the full plan list.
type Repository interface {
	LoadPlans(ctx context.Context) ([]Plan, error)
	SavePlans(ctx context.Context, plans []Plan) error
}

// =============================================================================
// PLAN BOOK - CRUD over an in-memory list
// =============================================================================

// PlanBook keeps plans in insertion order. Every mutation writes the whole
// list to the repository before it becomes visible in memory.
type PlanBook struct {
	repo  Repository
	clock generic.Clock
	newID func() string

	mu    sync.RWMutex
	plans []Plan
}

func NewPlanBook(repo Repository, clock generic.Clock) *PlanBook {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &PlanBook{repo: repo, clock: clock, newID: uuid.NewString}
}

// Load replaces memory with the persisted plans.
func (b *PlanBook) Load(ctx context.Context) error {
	plans, err := b.repo.LoadPlans(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.plans = plans
	b.mu.Unlock()
	return nil
}

func (b *PlanBook) List() []Plan {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.plans)
}

func (b *PlanBook) Get(id string) (Plan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexLocked(id)
	if i < 0 {
		return Plan{}, &generic.NotFoundError{Kind: "certification plan", ID: id}
	}
	return b.plans[i], nil
}

// Add validates and stores a new plan. ID, CreatedAt and Status=planning are
// assigned here; caller values for them are ignored.
func (b *PlanBook) Add(ctx context.Context, p Plan) (Plan, error) {
	p.ID = b.newID()
	p.CreatedAt = b.clock.Now()
	p.Status = StatusPlanning
	p.AcquiredDate = nil
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.commitLocked(ctx, append(slices.Clone(b.plans), p)); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Update replaces the plan with the same ID. CreatedAt is preserved.
func (b *PlanBook) Update(ctx context.Context, p Plan) (Plan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(p.ID)
	if i < 0 {
		return Plan{}, &generic.NotFoundError{Kind: "certification plan", ID: p.ID}
	}
	p.CreatedAt = b.plans[i].CreatedAt
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = b.plans[i].Status
	}
	switch {
	case p.Status != StatusAcquired:
		p.AcquiredDate = nil
	case p.AcquiredDate == nil:
		p.AcquiredDate = b.plans[i].AcquiredDate
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	next := slices.Clone(b.plans)
	next[i] = p
	if err := b.commitLocked(ctx, next); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// SetStatus moves a plan to status, stamping AcquiredDate when acquired.
func (b *PlanBook) SetStatus(ctx context.Context, id string, status Status) (Plan, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Plan{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return Plan{}, &generic.NotFoundError{Kind: "certification plan", ID: id}
	}
	p := b.plans[i].SetStatus(status, b.clock.Now())

	next := slices.Clone(b.plans)
	next[i] = p
	if err := b.commitLocked(ctx, next); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Remove hard-deletes a plan.
func (b *PlanBook) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return &generic.NotFoundError{Kind: "certification plan", ID: id}
	}
	return b.commitLocked(ctx, slices.Delete(slices.Clone(b.plans), i, i+1))
}

// RemoveAll deletes every plan.
func (b *PlanBook) RemoveAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commitLocked(ctx, []Plan{})
}

func (b *PlanBook) commitLocked(ctx context.Context, next []Plan) error {
	if err := b.repo.SavePlans(ctx, next); err != nil {
		return err
	}
	b.plans = next
	return nil
}

func (b *PlanBook) indexLocked(id string) int {
	return slices.IndexFunc(b.plans, func(p Plan) bool { return p.ID == id })
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary totals the plans that are not cancelled.
type Summary struct {
	PlanCount                    int
	ByStatus                     map[Status]int
	TotalCost                    decimal.Decimal
	TotalStudyHours              int
	TotalCompanyMonthlyIncrease  decimal.Decimal
	TotalTransferMonthlyIncrease decimal.Decimal
	NextTarget                   *time.Time
}

func (b *PlanBook) Summary() Summary {
	sum := Summary{
		ByStatus:                     make(map[Status]int),
		TotalCost:                    decimal.Zero,
		TotalCompanyMonthlyIncrease:  decimal.Zero,
		TotalTransferMonthlyIncrease: decimal.Zero,
	}
	now := b.clock.Now()
	for _, p := range b.List() {
		sum.PlanCount++
		sum.ByStatus[p.Status]++
		if p.Status == StatusCancelled {
			continue
		}
		sum.TotalCost = sum.TotalCost.Add(p.Cost)
		sum.TotalStudyHours += p.StudyHours
		sum.TotalCompanyMonthlyIncrease = sum.TotalCompanyMonthlyIncrease.Add(p.CompanySalaryIncrease)
		sum.TotalTransferMonthlyIncrease = sum.TotalTransferMonthlyIncrease.Add(p.TransferSalaryIncrease)

		if p.Status != StatusAcquired && !p.TargetDate.Before(now) {
			if sum.NextTarget == nil || p.TargetDate.Before(*sum.NextTarget) {
				t := p.TargetDate
				sum.NextTarget = &t
			}
		}
	}
	return sum
}
