package ruleengine

import (
	"context"
	"log/slog"
	"time"
)

// Listener observes a Fire call. All hooks run synchronously on the
// goroutine that called Fire.
type Listener interface {
	BeforeEvaluate(rule *Rule)
	AfterEvaluate(rule *Rule, matched bool)
	OnSuccess(rule *Rule)
	OnFailure(rule *Rule, err error)
	OnComplete(fired int, duration time.Duration)
}

// Engine evaluates a Rules set in one deterministic pass. Conditions are
// pre-bound, so facts are handed to actions and logged but never queried.
// Rules are not re-evaluated after an action changes state.
type Engine struct {
	logger    *slog.Logger
	listeners []Listener
}

type EngineOption func(*Engine)

func WithListener(l Listener) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

func NewEngine(logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fire runs every rule whose condition holds, exactly once, in registry
// order. The first failing action aborts the pass; actions already run
// are not undone.
func (e *Engine) Fire(ctx context.Context, rules *Rules, facts *Facts) error {
	if rules == nil {
		rules = NewRules()
	}
	if facts == nil {
		facts = NewFacts()
	}
	startTime := time.Now()
	fired := 0

	e.logger.DebugContext(ctx, "Firing rules",
		slog.Int("rules", rules.Len()),
		slog.Any("facts", facts.Keys()))

	for _, rule := range rules.All() {
		for _, l := range e.listeners {
			l.BeforeEvaluate(rule)
		}

		matched := rule.Evaluate()
		for _, l := range e.listeners {
			l.AfterEvaluate(rule, matched)
		}
		if !matched {
			continue
		}

		if err := rule.Execute(ctx, facts); err != nil {
			for _, l := range e.listeners {
				l.OnFailure(rule, err)
			}
			e.logger.ErrorContext(ctx, "Rule action failed",
				slog.String("rule", rule.Name()),
				slog.String("identity", rule.Identity()),
				slog.String("error", err.Error()))
			return &ActionError{Rule: rule.Name(), Identity: rule.Identity(), Err: err}
		}

		fired++
		for _, l := range e.listeners {
			l.OnSuccess(rule)
		}
		e.logger.DebugContext(ctx, "Rule fired",
			slog.String("rule", rule.Name()),
			slog.String("identity", rule.Identity()))
	}

	duration := time.Since(startTime)
	for _, l := range e.listeners {
		l.OnComplete(fired, duration)
	}

	return nil
}
