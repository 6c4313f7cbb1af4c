package repository

import (
	"cashflow_stp/internal/domain"
	"context"
	"errors"
	"time"
)

// RuleConfigReader is the read side of persisted rule definitions.
type RuleConfigReader interface {
	FindBusinessRule(ctx context.Context, name string, ruleType domain.RuleType) (*domain.BusinessRule, error)
	FindBusinessRuleByID(ctx context.Context, id int64) (*domain.BusinessRule, error)
	FindRulesByType(ctx context.Context, ruleType domain.RuleType) ([]*domain.BusinessRule, error)
	FindActiveRules(ctx context.Context, active bool) ([]*domain.BusinessRule, error)
	FindRuleAttribute(ctx context.Context, attributeName string, ruleType domain.RuleType) (*domain.RuleAttribute, error)
	FindRuleValues(ctx context.Context, attribute *domain.RuleAttribute) ([]*domain.RuleValue, error)
}

// RuleConfigWriter creates rule definitions. IDs are assigned on create.
type RuleConfigWriter interface {
	CreateRule(ctx context.Context, rule *domain.BusinessRule) error
	CreateAttribute(ctx context.Context, rule *domain.BusinessRule, attribute *domain.RuleAttribute) error
	CreateValue(ctx context.Context, attribute *domain.RuleAttribute, operand string) (*domain.RuleValue, error)
	SetActive(ctx context.Context, ruleID int64, active bool) error
}

type RuleConfigRepository interface {
	RuleConfigReader
	RuleConfigWriter
}

type CashflowRepository interface {
	Save(ctx context.Context, cashflow *domain.Cashflow) error
	GetByID(ctx context.Context, id string) (*domain.Cashflow, error)
	FindAll(ctx context.Context) ([]*domain.Cashflow, error)
	FindSTPAllowed(ctx context.Context) ([]*domain.Cashflow, error)
	FindByCounterParty(ctx context.Context, counterParty string) ([]*domain.Cashflow, error)
	FindByCounterPartyAndSettlementDate(ctx context.Context, counterParty string, settlementDate time.Time) ([]*domain.Cashflow, error)
	FindByCounterPartyCurrencyAndSettlementDate(ctx context.Context, counterParty, currency string, settlementDate time.Time) ([]*domain.Cashflow, error)
	// ApplySTPRule marks the cashflow non-STP, stores note and bumps the
	// version. It reports false and changes nothing when the cashflow is
	// already non-STP.
	ApplySTPRule(ctx context.Context, cashflow *domain.Cashflow, note string) (bool, error)
	DeleteAll(ctx context.Context) error
}

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")
)
