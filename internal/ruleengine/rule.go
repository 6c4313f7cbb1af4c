package ruleengine

import (
	"context"
	"fmt"
)

// Action is run when a rule's condition holds.
type Action func(ctx context.Context, facts *Facts) error

// Rule pairs a root condition with an action. Rules are ordered by
// Priority, then Identity; both are fixed at build time.
type Rule struct {
	name      string
	priority  int
	identity  string
	condition Condition
	action    Action
}

func (r *Rule) Name() string {
	return r.name
}

func (r *Rule) Priority() int {
	return r.priority
}

// Identity is the tie-break key, normally the ID of the bound object.
func (r *Rule) Identity() string {
	return r.identity
}

func (r *Rule) Condition() Condition {
	return r.condition
}

func (r *Rule) Evaluate() bool {
	return r.condition.Evaluate()
}

func (r *Rule) Execute(ctx context.Context, facts *Facts) error {
	return r.action(ctx, facts)
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s[%d/%s]", r.name, r.priority, r.identity)
}

// RuleBuilder assembles a Rule fluently:
//
//	rule, err := NewRuleBuilder().Named("stp").WithIdentity(cf.ID).
//		When(counterParty.Or(currency)).
//		Then(markNonSTP).
//		Build()
type RuleBuilder struct {
	name       string
	priority   int
	identity   string
	conditions []Condition
	action     Action
}

func NewRuleBuilder() *RuleBuilder {
	return &RuleBuilder{name: "rule"}
}

func (b *RuleBuilder) Named(name string) *RuleBuilder {
	b.name = name
	return b
}

func (b *RuleBuilder) WithPriority(priority int) *RuleBuilder {
	b.priority = priority
	return b
}

func (b *RuleBuilder) WithIdentity(identity string) *RuleBuilder {
	b.identity = identity
	return b
}

// When sets the root condition. Several conditions are combined with AND.
func (b *RuleBuilder) When(conditions ...Condition) *RuleBuilder {
	b.conditions = append(b.conditions[:0:0], conditions...)
	return b
}

func (b *RuleBuilder) Then(action Action) *RuleBuilder {
	b.action = action
	return b
}

func (b *RuleBuilder) Build() (*Rule, error) {
	if len(b.conditions) == 0 {
		return nil, fmt.Errorf("%w: %s has no condition", ErrIncompleteRule, b.name)
	}
	for _, c := range b.conditions {
		if c == nil {
			return nil, fmt.Errorf("%w: %s has a nil condition", ErrIncompleteRule, b.name)
		}
	}
	if b.action == nil {
		return nil, fmt.Errorf("%w: %s has no action", ErrIncompleteRule, b.name)
	}

	return &Rule{
		name:      b.name,
		priority:  b.priority,
		identity:  b.identity,
		condition: AllOf(b.conditions...),
		action:    b.action,
	}, nil
}
