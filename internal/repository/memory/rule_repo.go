package memory

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
)

type attributeKey struct {
	name     string
	ruleType domain.RuleType
}

// RuleRepository keeps business rules, their attributes and values in memory.
type RuleRepository struct {
	mu         sync.RWMutex
	nextID     int64
	rules      map[int64]*domain.BusinessRule
	attributes map[attributeKey]*domain.RuleAttribute
	values     map[int64][]*domain.RuleValue
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{
		rules:      make(map[int64]*domain.BusinessRule),
		attributes: make(map[attributeKey]*domain.RuleAttribute),
		values:     make(map[int64][]*domain.RuleValue),
	}
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *domain.BusinessRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rules {
		if existing.Name == rule.Name && existing.Type == rule.Type {
			return fmt.Errorf("%w: rule %s/%s", repository.ErrDuplicate, rule.Name, rule.Type)
		}
	}

	r.nextID++
	rule.ID = r.nextID
	r.rules[rule.ID] = rule

	return nil
}

func (r *RuleRepository) CreateAttribute(ctx context.Context, rule *domain.BusinessRule, attribute *domain.RuleAttribute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; !exists {
		return fmt.Errorf("%w: rule %d", repository.ErrNotFound, rule.ID)
	}

	attribute.RuleType = rule.Type
	key := attributeKey{name: attribute.AttributeName, ruleType: attribute.RuleType}
	if _, exists := r.attributes[key]; exists {
		return fmt.Errorf("%w: attribute %s/%s", repository.ErrDuplicate, attribute.AttributeName, attribute.RuleType)
	}

	r.nextID++
	attribute.ID = r.nextID
	attribute.RuleID = rule.ID
	r.attributes[key] = attribute

	return nil
}

func (r *RuleRepository) CreateValue(ctx context.Context, attribute *domain.RuleAttribute, operand string) (*domain.RuleValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.attributes[attributeKey{name: attribute.AttributeName, ruleType: attribute.RuleType}]
	if !exists || stored.ID != attribute.ID {
		return nil, fmt.Errorf("%w: attribute %s/%s", repository.ErrNotFound, attribute.AttributeName, attribute.RuleType)
	}

	for _, v := range r.values[attribute.ID] {
		if v.Operand == operand {
			return nil, fmt.Errorf("%w: value %q", repository.ErrDuplicate, operand)
		}
	}

	r.nextID++
	value := &domain.RuleValue{ID: r.nextID, Operand: operand, AttributeID: attribute.ID}
	r.values[attribute.ID] = append(r.values[attribute.ID], value)

	return value, nil
}

func (r *RuleRepository) SetActive(ctx context.Context, ruleID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, exists := r.rules[ruleID]
	if !exists {
		return fmt.Errorf("%w: rule %d", repository.ErrNotFound, ruleID)
	}

	rule.Active = active

	return nil
}

func (r *RuleRepository) FindBusinessRule(ctx context.Context, name string, ruleType domain.RuleType) (*domain.BusinessRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Name == name && rule.Type == ruleType {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("%w: rule %s/%s", repository.ErrNotFound, name, ruleType)
}

func (r *RuleRepository) FindBusinessRuleByID(ctx context.Context, id int64) (*domain.BusinessRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: rule %d", repository.ErrNotFound, id)
	}
	return rule, nil
}

func (r *RuleRepository) FindRulesByType(ctx context.Context, ruleType domain.RuleType) ([]*domain.BusinessRule, error) {
	return r.filterRules(func(rule *domain.BusinessRule) bool { return rule.Type == ruleType }), nil
}

func (r *RuleRepository) FindActiveRules(ctx context.Context, active bool) ([]*domain.BusinessRule, error) {
	return r.filterRules(func(rule *domain.BusinessRule) bool { return rule.Active == active }), nil
}

func (r *RuleRepository) FindRuleAttribute(ctx context.Context, attributeName string, ruleType domain.RuleType) (*domain.RuleAttribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attribute, exists := r.attributes[attributeKey{name: attributeName, ruleType: ruleType}]
	if !exists {
		return nil, fmt.Errorf("%w: attribute %s/%s", repository.ErrNotFound, attributeName, ruleType)
	}
	return attribute, nil
}

func (r *RuleRepository) FindRuleValues(ctx context.Context, attribute *domain.RuleAttribute) ([]*domain.RuleValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*domain.RuleValue(nil), r.values[attribute.ID]...), nil
}

func (r *RuleRepository) filterRules(keep func(*domain.BusinessRule) bool) []*domain.BusinessRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.BusinessRule
	for _, rule := range r.rules {
		if keep(rule) {
			result = append(result, rule)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].ID < result[j].ID
	})

	return result
}
