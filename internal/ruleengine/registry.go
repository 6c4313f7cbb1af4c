package ruleengine

import (
	"cmp"
	"slices"
)

// Comparator orders two rules the way cmp.Compare does.
type Comparator func(a, b *Rule) int

// ByPriority orders rules by ascending priority, then identity.
func ByPriority(a, b *Rule) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	return cmp.Compare(a.identity, b.identity)
}

// Rules is the ordered set of rules for one Fire call. Rules that compare
// equal are all kept, in registration order.
type Rules struct {
	compare Comparator
	rules   []*Rule
}

type RulesOption func(*Rules)

func WithComparator(compare Comparator) RulesOption {
	return func(r *Rules) {
		if compare != nil {
			r.compare = compare
		}
	}
}

func NewRules(opts ...RulesOption) *Rules {
	r := &Rules{compare: ByPriority}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rules) Register(rules ...*Rule) {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		// insert after the last rule that does not sort after this one
		idx, _ := slices.BinarySearchFunc(r.rules, rule, func(existing, target *Rule) int {
			if r.compare(existing, target) <= 0 {
				return -1
			}
			return 1
		})
		r.rules = slices.Insert(r.rules, idx, rule)
	}
}

// All returns the rules in evaluation order.
func (r *Rules) All() []*Rule {
	return slices.Clone(r.rules)
}

func (r *Rules) Len() int {
	return len(r.rules)
}
