package metrics

import (
	"cashflow_stp/internal/ruleengine"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ ruleengine.Listener = (*MetricsCollector)(nil)

// MetricsCollector records rule engine, STP and netting metrics on its own
// registry. It doubles as a ruleengine.Listener.
type MetricsCollector struct {
	registry           *prometheus.Registry
	rulesEvaluated     *prometheus.CounterVec
	rulesFired         *prometheus.CounterVec
	actionFailures     *prometheus.CounterVec
	fireDuration       prometheus.Histogram
	cashflowsSubmitted prometheus.Counter
	cashflowsFlagged   *prometheus.CounterVec
	nettingSetSize     prometheus.Histogram
	logger             *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		rulesEvaluated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "rules_evaluated_total",
			Help: "Total number of rule conditions evaluated, by outcome",
		}, []string{"rule", "matched"}),
		rulesFired: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "rules_fired_total",
			Help: "Total number of rule actions completed",
		}, []string{"rule"}),
		actionFailures: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "rule_action_failures_total",
			Help: "Total number of rule actions that returned an error",
		}, []string{"rule"}),
		fireDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "rules_fire_duration_seconds",
			Help:    "Time taken by one pass over a rule set",
			Buckets: prometheus.DefBuckets,
		}),
		cashflowsSubmitted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "cashflows_submitted_total",
			Help: "Total number of cashflows accepted for processing",
		}),
		cashflowsFlagged: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cashflows_non_stp_total",
			Help: "Total number of cashflows marked NON-STP",
		}, []string{"check"}),
		nettingSetSize: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "netting_set_size",
			Help:    "Number of cashflows per netting set",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) BeforeEvaluate(rule *ruleengine.Rule) {}

func (m *MetricsCollector) AfterEvaluate(rule *ruleengine.Rule, matched bool) {
	outcome := "false"
	if matched {
		outcome = "true"
	}
	m.rulesEvaluated.WithLabelValues(rule.Name(), outcome).Inc()
}

func (m *MetricsCollector) OnSuccess(rule *ruleengine.Rule) {
	m.rulesFired.WithLabelValues(rule.Name()).Inc()
}

func (m *MetricsCollector) OnFailure(rule *ruleengine.Rule, err error) {
	m.actionFailures.WithLabelValues(rule.Name()).Inc()
}

func (m *MetricsCollector) OnComplete(fired int, duration time.Duration) {
	m.fireDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordSubmission() {
	m.cashflowsSubmitted.Inc()
}

func (m *MetricsCollector) RecordNonSTP(check string) {
	m.cashflowsFlagged.WithLabelValues(check).Inc()
}

func (m *MetricsCollector) RecordNettingSet(size int) {
	m.nettingSetSize.Observe(float64(size))
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	m.logger.Info("Metrics server shutdown complete")
	return nil
}
