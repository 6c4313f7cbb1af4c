package ruleengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type probe struct {
	value bool
	calls int
}

func (p *probe) condition() Condition {
	return NewPredicate("probe", func(p *probe) bool {
		p.calls++
		return p.value
	}).Bind(p)
}

func TestPredicate_Bind(t *testing.T) {
	isEven := NewPredicate("even", func(n int) bool { return n%2 == 0 })

	assert.True(t, isEven.Bind(4).Evaluate())
	assert.False(t, isEven.Bind(3).Evaluate())
	assert.Equal(t, "even", isEven.Bind(4).String())
}

func TestCondition_TruthTables(t *testing.T) {
	tests := []struct {
		name    string
		left    bool
		right   bool
		wantAnd bool
		wantOr  bool
	}{
		{name: "false false", left: false, right: false, wantAnd: false, wantOr: false},
		{name: "false true", left: false, right: true, wantAnd: false, wantOr: true},
		{name: "true false", left: true, right: false, wantAnd: false, wantOr: true},
		{name: "true true", left: true, right: true, wantAnd: true, wantOr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := Always(tt.left), Always(tt.right)

			assert.Equal(t, tt.wantAnd, l.And(r).Evaluate())
			assert.Equal(t, tt.wantAnd, r.And(l).Evaluate(), "and is commutative")
			assert.Equal(t, tt.wantOr, l.Or(r).Evaluate())
			assert.Equal(t, tt.wantOr, r.Or(l).Evaluate(), "or is commutative")
		})
	}
}

func TestCondition_Associative(t *testing.T) {
	values := []bool{false, true}
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				ca, cb, cc := Always(a), Always(b), Always(c)
				assert.Equal(t, ca.And(cb).And(cc).Evaluate(), ca.And(cb.And(cc)).Evaluate())
				assert.Equal(t, ca.Or(cb).Or(cc).Evaluate(), ca.Or(cb.Or(cc)).Evaluate())
			}
		}
	}
}

func TestCondition_ShortCircuit(t *testing.T) {
	t.Run("and stops at first false", func(t *testing.T) {
		first, second := &probe{value: false}, &probe{value: true}

		assert.False(t, first.condition().And(second.condition()).Evaluate())
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls)
	})

	t.Run("or stops at first true", func(t *testing.T) {
		first, second := &probe{value: true}, &probe{value: false}

		assert.True(t, first.condition().Or(second.condition()).Evaluate())
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls)
	})
}

func TestAllOfAnyOf(t *testing.T) {
	assert.True(t, AllOf().Evaluate())
	assert.False(t, AnyOf().Evaluate())
	assert.True(t, AllOf(Always(true), Always(true), Always(true)).Evaluate())
	assert.False(t, AllOf(Always(true), Always(false), Always(true)).Evaluate())
	assert.True(t, AnyOf(Always(false), Always(false), Always(true)).Evaluate())
	assert.False(t, AnyOf(Always(false), Always(false)).Evaluate())
}

func TestCondition_String(t *testing.T) {
	c := Always(true).And(Always(false)).Or(Always(true))
	assert.Equal(t, "((true AND false) OR true)", c.String())
}

func TestCondition_ComposingDoesNotMutate(t *testing.T) {
	base := Always(true)
	_ = base.And(Always(false))
	_ = base.Or(Always(false))

	assert.True(t, base.Evaluate())
	assert.Equal(t, "true", base.String())
}
