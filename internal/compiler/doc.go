// Package compiler turns persisted rule definitions into conditions bound
// to a single cashflow.
//
// A definition is a RuleAttribute (the cashflow field to match, scoped to a
// rule type) plus its RuleValue operands. Compiling loads the operand set
// once, builds an unbound predicate over *domain.Cashflow and binds it to
// the cashflow under test. A missing attribute is reported as
// ErrConfigurationNotFound before anything is evaluated.
package compiler
