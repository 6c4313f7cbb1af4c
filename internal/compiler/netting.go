package compiler

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/ruleengine"
	"context"
	"fmt"
)

// NettingCompiler produces one NETTING condition per netting dimension:
// counterparty, currency and settlement date.
type NettingCompiler struct {
	dimensions []AttributeCompiler
}

func NewNettingCompiler(loader *OperandLoader) *NettingCompiler {
	return &NettingCompiler{
		dimensions: []AttributeCompiler{
			NewCounterPartyCompiler(loader),
			NewCurrencyCompiler(loader),
			NewSettlementDateCompiler(loader),
		},
	}
}

func (c *NettingCompiler) Compile(ctx context.Context, cf *domain.Cashflow, ruleName string) ([]ruleengine.Condition, error) {
	conditions := make([]ruleengine.Condition, 0, len(c.dimensions))
	for _, dim := range c.dimensions {
		cond, err := dim.Compile(ctx, cf, ruleName, domain.RuleTypeNetting)
		if err != nil {
			return nil, fmt.Errorf("netting dimension %s: %w", dim.Attribute(), err)
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}
