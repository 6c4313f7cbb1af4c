package compiler

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrConfigurationNotFound = errors.New("rule configuration not found")
	ErrUnknownAttribute      = errors.New("unknown rule attribute")
	ErrInvalidOperand        = errors.New("invalid rule operand")
)

// OperandSet is the match set configured for one attribute and rule type.
type OperandSet struct {
	Attribute *domain.RuleAttribute
	Rule      *domain.BusinessRule
	Operands  []string
	index     map[string]struct{}
}

func (s *OperandSet) Contains(value string) bool {
	_, ok := s.index[value]
	return ok
}

// Active reports whether the owning business rule is switched on.
func (s *OperandSet) Active() bool {
	return s.Rule == nil || s.Rule.Active
}

type cacheKey struct {
	rule      string
	attribute string
	ruleType  domain.RuleType
}

// OperandLoader reads operand sets through a RuleConfigReader and caches
// them per (rule, attribute, rule type). It is safe for concurrent use.
type OperandLoader struct {
	reader repository.RuleConfigReader
	logger *slog.Logger
	mu     sync.RWMutex
	cache  map[cacheKey]*OperandSet
}

func NewOperandLoader(reader repository.RuleConfigReader, logger *slog.Logger) *OperandLoader {
	if logger == nil {
		logger = slog.Default()
	}

	return &OperandLoader{
		reader: reader,
		logger: logger,
		cache:  make(map[cacheKey]*OperandSet),
	}
}

// Load returns the operands of attribute under the business rule named
// ruleName. The attribute must belong to that rule.
func (l *OperandLoader) Load(ctx context.Context, ruleName, attribute string, ruleType domain.RuleType) (*OperandSet, error) {
	key := cacheKey{rule: ruleName, attribute: attribute, ruleType: ruleType}

	l.mu.RLock()
	cached, exists := l.cache[key]
	l.mu.RUnlock()
	if exists {
		return cached, nil
	}

	set, err := l.load(ctx, ruleName, attribute, ruleType)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = set
	l.mu.Unlock()

	return set, nil
}

func (l *OperandLoader) load(ctx context.Context, ruleName, attribute string, ruleType domain.RuleType) (*OperandSet, error) {
	rule, err := l.reader.FindBusinessRule(ctx, ruleName, ruleType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: business rule %q of type %s", ErrConfigurationNotFound, ruleName, ruleType)
		}
		return nil, fmt.Errorf("failed to find business rule: %w", err)
	}

	attr, err := l.reader.FindRuleAttribute(ctx, attribute, ruleType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: attribute %s for rule type %s", ErrConfigurationNotFound, attribute, ruleType)
		}
		return nil, fmt.Errorf("failed to find rule attribute: %w", err)
	}
	if attr.RuleID != rule.ID {
		return nil, fmt.Errorf("%w: attribute %s is not defined by rule %q", ErrConfigurationNotFound, attribute, ruleName)
	}

	values, err := l.reader.FindRuleValues(ctx, attr)
	if err != nil {
		return nil, fmt.Errorf("failed to find rule values: %w", err)
	}

	set := &OperandSet{
		Attribute: attr,
		Rule:      rule,
		Operands:  make([]string, 0, len(values)),
		index:     make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		set.Operands = append(set.Operands, v.Operand)
		set.index[v.Operand] = struct{}{}
	}

	l.logger.DebugContext(ctx, "Loaded rule operands",
		slog.String("attribute", attribute),
		slog.String("rule_type", string(ruleType)),
		slog.String("rule", rule.Name),
		slog.Int("operands", len(set.Operands)))

	return set, nil
}

func (l *OperandLoader) InvalidateCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[cacheKey]*OperandSet)
}
