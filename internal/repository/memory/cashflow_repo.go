package memory

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CashflowRepository stores cashflow pointers; callers share them with the store.
type CashflowRepository struct {
	mu        sync.RWMutex
	cashflows map[string]*domain.Cashflow
	order     []string
}

func NewCashflowRepository() *CashflowRepository {
	return &CashflowRepository{
		cashflows: make(map[string]*domain.Cashflow),
	}
}

func (r *CashflowRepository) Save(ctx context.Context, cf *domain.Cashflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cashflows[cf.ID]; exists {
		return fmt.Errorf("%w: cashflow %s", repository.ErrDuplicate, cf.ID)
	}

	cf.UpdatedAt = time.Now()
	r.cashflows[cf.ID] = cf
	r.order = append(r.order, cf.ID)

	return nil
}

func (r *CashflowRepository) GetByID(ctx context.Context, id string) (*domain.Cashflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cf, exists := r.cashflows[id]
	if !exists {
		return nil, fmt.Errorf("%w: cashflow %s", repository.ErrNotFound, id)
	}
	return cf, nil
}

func (r *CashflowRepository) FindAll(ctx context.Context) ([]*domain.Cashflow, error) {
	return r.filter(func(*domain.Cashflow) bool { return true }), nil
}

func (r *CashflowRepository) FindSTPAllowed(ctx context.Context) ([]*domain.Cashflow, error) {
	return r.filter(func(cf *domain.Cashflow) bool { return cf.StpAllowed }), nil
}

func (r *CashflowRepository) FindByCounterParty(ctx context.Context, counterParty string) ([]*domain.Cashflow, error) {
	return r.filter(func(cf *domain.Cashflow) bool { return cf.CounterParty == counterParty }), nil
}

func (r *CashflowRepository) FindByCounterPartyAndSettlementDate(ctx context.Context, counterParty string, settlementDate time.Time) ([]*domain.Cashflow, error) {
	day := domain.TruncateDate(settlementDate)
	return r.filter(func(cf *domain.Cashflow) bool {
		return cf.CounterParty == counterParty && cf.SettlementDate.Equal(day)
	}), nil
}

func (r *CashflowRepository) FindByCounterPartyCurrencyAndSettlementDate(ctx context.Context, counterParty, currency string, settlementDate time.Time) ([]*domain.Cashflow, error) {
	day := domain.TruncateDate(settlementDate)
	return r.filter(func(cf *domain.Cashflow) bool {
		return cf.CounterParty == counterParty && cf.Currency == currency && cf.SettlementDate.Equal(day)
	}), nil
}

func (r *CashflowRepository) ApplySTPRule(ctx context.Context, cf *domain.Cashflow, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.cashflows[cf.ID]
	if !exists {
		return false, fmt.Errorf("%w: cashflow %s", repository.ErrNotFound, cf.ID)
	}

	if !stored.StpAllowed {
		return false, nil
	}
	if stored.Version != cf.Version {
		return false, fmt.Errorf("%w: cashflow %s at version %d, caller has %d",
			repository.ErrVersionConflict, cf.ID, stored.Version, cf.Version)
	}

	stored.StpAllowed = false
	stored.Note = note
	stored.Version++
	stored.UpdatedAt = time.Now()

	if stored != cf {
		*cf = *stored
	}

	return true, nil
}

func (r *CashflowRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cashflows = make(map[string]*domain.Cashflow)
	r.order = nil

	return nil
}

// filter returns matches in save order.
func (r *CashflowRepository) filter(keep func(*domain.Cashflow) bool) []*domain.Cashflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Cashflow
	for _, id := range r.order {
		if cf := r.cashflows[id]; keep(cf) {
			result = append(result, cf)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}
