package processor

import (
	"cashflow_stp/internal/compiler"
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"cashflow_stp/internal/ruleengine"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NettingSet is the group of cashflows netted under one key.
type NettingSet struct {
	Key       domain.NettingKey  `json:"key"`
	Cashflows []*domain.Cashflow `json:"cashflows"`
}

func (s *NettingSet) Total() float64 {
	var total float64
	for _, cf := range s.Cashflows {
		total += cf.Amount
	}
	return total
}

type NettingRecorder interface {
	RecordNettingSet(size int)
}

type NettingProcessor struct {
	cashflows repository.CashflowRepository
	compiler  *compiler.NettingCompiler
	loader    *compiler.OperandLoader
	engine    *ruleengine.Engine
	ruleName  string
	workers   int
	recorder  NettingRecorder
	logger    *slog.Logger
}

func NewNettingProcessor(
	cashflows repository.CashflowRepository,
	loader *compiler.OperandLoader,
	engine *ruleengine.Engine,
	ruleName string,
	workers int,
	logger *slog.Logger,
) *NettingProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	return &NettingProcessor{
		cashflows: cashflows,
		compiler:  compiler.NewNettingCompiler(loader),
		loader:    loader,
		engine:    engine,
		ruleName:  ruleName,
		workers:   workers,
		logger:    logger,
	}
}

func (p *NettingProcessor) WithRecorder(r NettingRecorder) *NettingProcessor {
	p.recorder = r
	return p
}

// NetTogether fires one rule per cashflow, each requiring every netting
// condition, and returns the cashflows whose rule fired. The input is
// expected to share one netting key.
func (p *NettingProcessor) NetTogether(ctx context.Context, cashflows []*domain.Cashflow) ([]*domain.Cashflow, error) {
	var netted []*domain.Cashflow
	seen := make(map[string]struct{}, len(cashflows))

	facts := ruleengine.NewFacts()
	rules := ruleengine.NewRules()

	for i, cf := range cashflows {
		if err := facts.Put(fmt.Sprintf("cashflow-%d", i+1), cf); err != nil {
			return nil, err
		}

		conditions, err := p.compiler.Compile(ctx, cf, p.ruleName)
		if err != nil {
			return nil, err
		}

		rule, err := ruleengine.NewRuleBuilder().
			Named(p.ruleName).
			WithIdentity(cf.ID).
			When(conditions...).
			Then(func(ctx context.Context, facts *ruleengine.Facts) error {
				if _, dup := seen[cf.ID]; !dup {
					seen[cf.ID] = struct{}{}
					netted = append(netted, cf)
				}
				return nil
			}).
			Build()
		if err != nil {
			return nil, err
		}
		rules.Register(rule)
	}

	if err := p.engine.Fire(ctx, rules, facts); err != nil {
		return nil, fmt.Errorf("netting failed: %w", err)
	}

	return netted, nil
}

// NetBuckets nets each bucket independently and concurrently. Every key of
// buckets appears in the result, possibly with an empty set.
func (p *NettingProcessor) NetBuckets(ctx context.Context, buckets map[domain.NettingKey][]*domain.Cashflow) (map[domain.NettingKey]*NettingSet, error) {
	var mu sync.Mutex
	result := make(map[domain.NettingKey]*NettingSet, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for key, cashflows := range buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			netted, err := p.NetTogether(gctx, cashflows)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", key, err)
			}

			mu.Lock()
			result[key] = &NettingSet{Key: key, Cashflows: netted}
			mu.Unlock()

			if p.recorder != nil {
				p.recorder.RecordNettingSet(len(netted))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// NetAll groups every STP-allowed cashflow by netting key and nets the buckets.
func (p *NettingProcessor) NetAll(ctx context.Context) (map[domain.NettingKey]*NettingSet, error) {
	p.loader.InvalidateCache()

	cashflows, err := p.cashflows.FindSTPAllowed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflows: %w", err)
	}

	buckets := GroupByNettingKey(cashflows)
	sets, err := p.NetBuckets(ctx, buckets)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Netting complete",
		slog.Int("cashflows", len(cashflows)),
		slog.Int("buckets", len(buckets)))

	return sets, nil
}

func GroupByNettingKey(cashflows []*domain.Cashflow) map[domain.NettingKey][]*domain.Cashflow {
	buckets := make(map[domain.NettingKey][]*domain.Cashflow)
	for _, cf := range cashflows {
		key := cf.NettingKey()
		buckets[key] = append(buckets[key], cf)
	}
	return buckets
}
