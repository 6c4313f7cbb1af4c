package processor

import (
	"cashflow_stp/internal/compiler"
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"cashflow_stp/internal/ruleengine"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// AttributeRef names a configured attribute and the business rule it is
// evaluated for.
type AttributeRef struct {
	Attribute string `yaml:"attribute" json:"attribute"`
	Rule      string `yaml:"rule" json:"rule"`
}

// STPCheck is one NON-STP rule: its attribute conditions are combined
// with Match and a cashflow that satisfies them is marked with Note.
type STPCheck struct {
	Name       string         `yaml:"name" json:"name"`
	Match      MatchMode      `yaml:"match" json:"match"`
	Note       string         `yaml:"note" json:"note"`
	Priority   int            `yaml:"priority" json:"priority"`
	Conditions []AttributeRef `yaml:"conditions" json:"conditions"`
}

func (c STPCheck) Validate() error {
	if c.Name == "" {
		return errors.New("check name is required")
	}
	if c.Match != MatchAny && c.Match != MatchAll {
		return fmt.Errorf("check %s: match must be %q or %q, got %q", c.Name, MatchAny, MatchAll, c.Match)
	}
	if len(c.Conditions) == 0 {
		return fmt.Errorf("check %s: at least one condition is required", c.Name)
	}
	for _, ref := range c.Conditions {
		if ref.Attribute == "" {
			return fmt.Errorf("check %s: condition attribute is required", c.Name)
		}
	}
	return nil
}

// ReviewNotifier is told about every cashflow that needs manual review.
type ReviewNotifier interface {
	NotifyNonSTP(ctx context.Context, cf *domain.Cashflow, check string) error
}

type STPRecorder interface {
	RecordNonSTP(check string)
}

type STPReport struct {
	Evaluated int      `json:"evaluated"`
	Flagged   []string `json:"flagged"`
}

type STPProcessor struct {
	cashflows repository.CashflowRepository
	compilers *compiler.Registry
	engine    *ruleengine.Engine
	notifier  ReviewNotifier
	recorder  STPRecorder
	logger    *slog.Logger
}

func NewSTPProcessor(
	cashflows repository.CashflowRepository,
	compilers *compiler.Registry,
	engine *ruleengine.Engine,
	logger *slog.Logger,
) *STPProcessor {
	if logger == nil {
		logger = slog.Default()
	}

	return &STPProcessor{
		cashflows: cashflows,
		compilers: compilers,
		engine:    engine,
		logger:    logger,
	}
}

func (p *STPProcessor) WithNotifier(n ReviewNotifier) *STPProcessor {
	p.notifier = n
	return p
}

func (p *STPProcessor) WithRecorder(r STPRecorder) *STPProcessor {
	p.recorder = r
	return p
}

// EvaluatePending runs the checks over every cashflow still STP-allowed.
func (p *STPProcessor) EvaluatePending(ctx context.Context, checks []STPCheck) (*STPReport, error) {
	cashflows, err := p.cashflows.FindSTPAllowed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflows: %w", err)
	}
	return p.Evaluate(ctx, cashflows, checks)
}

// Evaluate compiles one rule per (check, cashflow) and fires them in a
// single pass. All conditions are compiled before any action runs, so a
// configuration error leaves every cashflow untouched.
func (p *STPProcessor) Evaluate(ctx context.Context, cashflows []*domain.Cashflow, checks []STPCheck) (*STPReport, error) {
	p.compilers.Loader().InvalidateCache()

	report := &STPReport{Evaluated: len(cashflows), Flagged: []string{}}
	facts := ruleengine.NewFacts()
	rules := ruleengine.NewRules()

	for i, cf := range cashflows {
		if err := facts.Put(fmt.Sprintf("cashflow-%d", i+1), cf); err != nil {
			return nil, err
		}
	}

	for _, check := range checks {
		if err := check.Validate(); err != nil {
			return nil, err
		}
		for _, cf := range cashflows {
			rule, err := p.buildRule(ctx, check, cf, report)
			if err != nil {
				return nil, err
			}
			rules.Register(rule)
		}
	}

	if err := p.engine.Fire(ctx, rules, facts); err != nil {
		return report, fmt.Errorf("STP evaluation failed: %w", err)
	}

	p.logger.InfoContext(ctx, "STP evaluation complete",
		slog.Int("evaluated", report.Evaluated),
		slog.Int("flagged", len(report.Flagged)))

	return report, nil
}

func (p *STPProcessor) buildRule(ctx context.Context, check STPCheck, cf *domain.Cashflow, report *STPReport) (*ruleengine.Rule, error) {
	conditions := make([]ruleengine.Condition, 0, len(check.Conditions))
	for _, ref := range check.Conditions {
		cond, err := p.compilers.Compile(ctx, cf, ref.Attribute, ref.Rule, domain.RuleTypeNonSTP)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", check.Name, err)
		}
		conditions = append(conditions, cond)
	}

	var root ruleengine.Condition
	if check.Match == MatchAll {
		root = ruleengine.AllOf(conditions...)
	} else {
		root = ruleengine.AnyOf(conditions...)
	}

	return ruleengine.NewRuleBuilder().
		Named(check.Name).
		WithPriority(check.Priority).
		WithIdentity(cf.ID).
		When(root).
		Then(func(ctx context.Context, facts *ruleengine.Facts) error {
			return p.markNonSTP(ctx, check, cf, report)
		}).
		Build()
}

func (p *STPProcessor) markNonSTP(ctx context.Context, check STPCheck, cf *domain.Cashflow, report *STPReport) error {
	// an earlier check in this pass may already have flagged it
	if !cf.StpAllowed {
		return nil
	}

	applied, err := p.cashflows.ApplySTPRule(ctx, cf, check.Note)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	report.Flagged = append(report.Flagged, cf.ID)
	if p.recorder != nil {
		p.recorder.RecordNonSTP(check.Name)
	}

	p.logger.WarnContext(ctx, "Cashflow marked NON-STP",
		slog.String("cashflow_id", cf.ID),
		slog.String("counter_party", cf.CounterParty),
		slog.String("check", check.Name))

	if p.notifier != nil {
		if err := p.notifier.NotifyNonSTP(ctx, cf, check.Name); err != nil {
			p.logger.ErrorContext(ctx, "Failed to queue review notification",
				slog.String("cashflow_id", cf.ID),
				slog.String("error", err.Error()))
		}
	}

	return nil
}
