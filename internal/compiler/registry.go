package compiler

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/ruleengine"
	"context"
	"fmt"
	"sort"
)

// Registry resolves attribute names to their compilers.
type Registry struct {
	loader    *OperandLoader
	compilers map[string]AttributeCompiler
}

// NewRegistry registers the counterParty, currency, settlementDate and
// amount compilers.
func NewRegistry(loader *OperandLoader) *Registry {
	r := &Registry{
		loader:    loader,
		compilers: make(map[string]AttributeCompiler),
	}
	r.Register(
		NewCounterPartyCompiler(loader),
		NewCurrencyCompiler(loader),
		NewSettlementDateCompiler(loader),
		NewAmountCompiler(loader),
	)
	return r
}

func (r *Registry) Register(compilers ...AttributeCompiler) {
	for _, c := range compilers {
		r.compilers[c.Attribute()] = c
	}
}

func (r *Registry) Lookup(attribute string) (AttributeCompiler, error) {
	c, exists := r.compilers[attribute]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, attribute)
	}
	return c, nil
}

func (r *Registry) Compile(ctx context.Context, cf *domain.Cashflow, attribute, ruleName string, ruleType domain.RuleType) (ruleengine.Condition, error) {
	c, err := r.Lookup(attribute)
	if err != nil {
		return nil, err
	}
	return c.Compile(ctx, cf, ruleName, ruleType)
}

func (r *Registry) Attributes() []string {
	names := make([]string, 0, len(r.compilers))
	for name := range r.compilers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Loader() *OperandLoader {
	return r.loader
}
