package compiler

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/ruleengine"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// AttributeCompiler builds the condition for one matchable cashflow field.
type AttributeCompiler interface {
	Attribute() string
	Compile(ctx context.Context, cf *domain.Cashflow, ruleName string, ruleType domain.RuleType) (ruleengine.Condition, error)
}

// template builds the unbound predicate for an operand set.
type template func(set *OperandSet) (ruleengine.Predicate[*domain.Cashflow], error)

type attributeCompiler struct {
	attribute string
	loader    *OperandLoader
	template  template
	logger    *slog.Logger
}

func (c *attributeCompiler) Attribute() string {
	return c.attribute
}

func (c *attributeCompiler) Compile(ctx context.Context, cf *domain.Cashflow, ruleName string, ruleType domain.RuleType) (ruleengine.Condition, error) {
	set, err := c.loader.Load(ctx, ruleName, c.attribute, ruleType)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", ruleName, err)
	}

	if !set.Active() {
		c.logger.DebugContext(ctx, "Business rule inactive, condition never matches",
			slog.String("rule", set.Rule.Name),
			slog.String("attribute", c.attribute),
			slog.String("cashflow_id", cf.ID))
		return ruleengine.Always(false), nil
	}

	predicate, err := c.template(set)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", ruleName, err)
	}

	return predicate.Bind(cf), nil
}

func newAttributeCompiler(attribute string, loader *OperandLoader, tmpl template) *attributeCompiler {
	return &attributeCompiler{
		attribute: attribute,
		loader:    loader,
		template:  tmpl,
		logger:    loader.logger,
	}
}

// stringField matches when field(cf) is one of the operands.
func stringField(name string, field func(*domain.Cashflow) string) template {
	return func(set *OperandSet) (ruleengine.Predicate[*domain.Cashflow], error) {
		return ruleengine.NewPredicate(
			fmt.Sprintf("%s in %v", name, set.Operands),
			func(cf *domain.Cashflow) bool { return set.Contains(field(cf)) },
		), nil
	}
}

func NewCounterPartyCompiler(loader *OperandLoader) AttributeCompiler {
	return newAttributeCompiler(domain.AttributeCounterParty, loader,
		stringField(domain.AttributeCounterParty, func(cf *domain.Cashflow) string { return cf.CounterParty }))
}

func NewCurrencyCompiler(loader *OperandLoader) AttributeCompiler {
	return newAttributeCompiler(domain.AttributeCurrency, loader,
		stringField(domain.AttributeCurrency, func(cf *domain.Cashflow) string { return cf.Currency }))
}

// NewSettlementDateCompiler matches operands written as 2006-01-02.
func NewSettlementDateCompiler(loader *OperandLoader) AttributeCompiler {
	return newAttributeCompiler(domain.AttributeSettlementDate, loader,
		func(set *OperandSet) (ruleengine.Predicate[*domain.Cashflow], error) {
			days := make(map[string]struct{}, len(set.Operands))
			for _, op := range set.Operands {
				day, err := time.Parse(domain.DateLayout, strings.TrimSpace(op))
				if err != nil {
					return ruleengine.Predicate[*domain.Cashflow]{}, fmt.Errorf("%w: settlement date %q", ErrInvalidOperand, op)
				}
				days[day.Format(domain.DateLayout)] = struct{}{}
			}

			return ruleengine.NewPredicate(
				fmt.Sprintf("%s in %v", domain.AttributeSettlementDate, set.Operands),
				func(cf *domain.Cashflow) bool {
					_, ok := days[cf.SettlementDay()]
					return ok
				},
			), nil
		})
}

// NewAmountCompiler parses operands as decimals and compares numerically.
func NewAmountCompiler(loader *OperandLoader) AttributeCompiler {
	return newAttributeCompiler(domain.AttributeAmount, loader,
		func(set *OperandSet) (ruleengine.Predicate[*domain.Cashflow], error) {
			amounts := make([]float64, 0, len(set.Operands))
			for _, op := range set.Operands {
				amount, err := strconv.ParseFloat(strings.TrimSpace(op), 64)
				if err != nil {
					return ruleengine.Predicate[*domain.Cashflow]{}, fmt.Errorf("%w: amount %q", ErrInvalidOperand, op)
				}
				amounts = append(amounts, amount)
			}

			return ruleengine.NewPredicate(
				fmt.Sprintf("%s in %v", domain.AttributeAmount, set.Operands),
				func(cf *domain.Cashflow) bool {
					for _, amount := range amounts {
						if cf.Amount == amount {
							return true
						}
					}
					return false
				},
			), nil
		})
}
