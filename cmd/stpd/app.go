package main

import (
	"cashflow_stp/internal/compiler"
	"cashflow_stp/internal/config"
	"cashflow_stp/internal/processor"
	"cashflow_stp/internal/repository/sqlite"
	"cashflow_stp/internal/ruleengine"
	"cashflow_stp/pkg/metrics"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
)

var ErrDatabaseLocked = errors.New("database is locked by another stpd process")

// app holds the collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlite.Store
	lock    *flock.Flock
	metrics *metrics.MetricsCollector
	loader  *compiler.OperandLoader
	engine  *ruleengine.Engine
}

// openApp opens the database. Commands that write take an exclusive lock
// on a sibling .lock file first.
func openApp(cfg *config.Config, logger *slog.Logger, exclusive bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if exclusive {
		a.lock = flock.New(cfg.Database.Path + ".lock")
		locked, err := a.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseLocked, cfg.Database.Path)
		}
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		a.unlock()
		return nil, err
	}
	a.store = store

	a.metrics = metrics.NewMetricsCollector(logger)
	a.loader = compiler.NewOperandLoader(store.Rules(), logger)
	a.engine = ruleengine.NewEngine(logger, ruleengine.WithListener(a.metrics))

	return a, nil
}

func (a *app) stpProcessor() *processor.STPProcessor {
	return processor.NewSTPProcessor(a.store.Cashflows(), compiler.NewRegistry(a.loader), a.engine, a.logger).
		WithRecorder(a.metrics)
}

func (a *app) nettingProcessor() *processor.NettingProcessor {
	return processor.NewNettingProcessor(a.store.Cashflows(), a.loader, a.engine, a.cfg.Netting.Rule, a.cfg.Netting.Workers, a.logger).
		WithRecorder(a.metrics)
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close database", slog.String("error", err.Error()))
		}
	}
	a.unlock()
}

func (a *app) unlock() {
	if a.lock == nil {
		return
	}
	if err := a.lock.Unlock(); err != nil {
		a.logger.Error("Failed to release lock", slog.String("error", err.Error()))
	}
}
