// Package metrics provides the centralized Prometheus metrics registry for the engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	FoldsValidatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "folds_validated_total",
		Help:      "Total number of temporal folds checked",
	})
	FoldViolationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "fold_violations_total",
		Help:      "Total number of folds that failed temporal integrity checks",
	})
	RecordsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "records_accepted_total",
		Help:      "Total number of prediction records that passed precondition validation",
	})
	RecordsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "records_rejected_total",
		Help:      "Total number of prediction records rejected, by reason",
	}, []string{"reason"})
	AllocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "allocations_total",
		Help:      "Total number of allocation plans produced",
	})
	AllocationsScaledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "allocations_scaled_total",
		Help:      "Total number of allocation plans shrunk by the portfolio cap",
	})
	EvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_engine",
		Name:      "evaluations_total",
		Help:      "Total number of class metrics evaluations computed",
	})
)

// Gauge metrics
var (
	LastPlanTotalStake = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "last_plan_total_stake",
		Help:      "Total recommended stake of the most recent allocation plan",
	})
	LastPlanCandidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "last_plan_candidates",
		Help:      "Number of candidates in the most recent allocation plan",
	})
	LastEvaluationLogLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_engine",
		Name:      "last_evaluation_log_loss",
		Help:      "Log loss of the most recent class metrics evaluation",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(FoldsValidatedTotal)
		registry.MustRegister(FoldViolationsTotal)
		registry.MustRegister(RecordsAcceptedTotal)
		registry.MustRegister(RecordsRejectedTotal)
		registry.MustRegister(AllocationsTotal)
		registry.MustRegister(AllocationsScaledTotal)
		registry.MustRegister(EvaluationsTotal)

		registry.MustRegister(LastPlanTotalStake)
		registry.MustRegister(LastPlanCandidates)
		registry.MustRegister(LastEvaluationLogLoss)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRejection records a rejected prediction record by reason.
func RecordRejection(reason string) {
	RecordsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordPlan updates plan gauges after an allocation run.
func RecordPlan(totalStake float64, candidates int, scaled bool) {
	AllocationsTotal.Inc()
	if scaled {
		AllocationsScaledTotal.Inc()
	}
	LastPlanTotalStake.Set(totalStake)
	LastPlanCandidates.Set(float64(candidates))
}
