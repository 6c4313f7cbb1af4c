package ruleengine

import (
	"fmt"
)

// Condition is an immutable boolean predicate. Leaves are bound to the
// object they test when they are created, so Evaluate takes no input.
type Condition interface {
	Evaluate() bool
	And(other Condition) Condition
	Or(other Condition) Condition
	String() string
}

// Predicate is an unbound test over a T. It becomes a Condition only
// through Bind, which captures the target once.
type Predicate[T any] struct {
	Name string
	Test func(T) bool
}

func NewPredicate[T any](name string, test func(T) bool) Predicate[T] {
	return Predicate[T]{Name: name, Test: test}
}

func (p Predicate[T]) Bind(target T) Condition {
	test := p.Test
	return &leaf{
		name: p.Name,
		eval: func() bool { return test(target) },
	}
}

// Always returns a leaf with a fixed outcome.
func Always(value bool) Condition {
	return &leaf{
		name: fmt.Sprintf("%t", value),
		eval: func() bool { return value },
	}
}

// AllOf folds conditions with AND. An empty list is true.
func AllOf(conditions ...Condition) Condition {
	if len(conditions) == 0 {
		return Always(true)
	}
	result := conditions[0]
	for _, c := range conditions[1:] {
		result = result.And(c)
	}
	return result
}

// AnyOf folds conditions with OR. An empty list is false.
func AnyOf(conditions ...Condition) Condition {
	if len(conditions) == 0 {
		return Always(false)
	}
	result := conditions[0]
	for _, c := range conditions[1:] {
		result = result.Or(c)
	}
	return result
}

type leaf struct {
	name string
	eval func() bool
}

func (l *leaf) Evaluate() bool {
	return l.eval()
}

func (l *leaf) And(other Condition) Condition {
	return &junction{op: opAnd, left: l, right: other}
}

func (l *leaf) Or(other Condition) Condition {
	return &junction{op: opOr, left: l, right: other}
}

func (l *leaf) String() string {
	return l.name
}

type operator int

const (
	opAnd operator = iota
	opOr
)

func (o operator) String() string {
	if o == opAnd {
		return "AND"
	}
	return "OR"
}

type junction struct {
	op    operator
	left  Condition
	right Condition
}

func (j *junction) Evaluate() bool {
	switch j.op {
	case opAnd:
		return j.left.Evaluate() && j.right.Evaluate()
	default:
		return j.left.Evaluate() || j.right.Evaluate()
	}
}

func (j *junction) And(other Condition) Condition {
	return &junction{op: opAnd, left: j, right: other}
}

func (j *junction) Or(other Condition) Condition {
	return &junction{op: opOr, left: j, right: other}
}

func (j *junction) String() string {
	return fmt.Sprintf("(%s %s %s)", j.left, j.op, j.right)
}
