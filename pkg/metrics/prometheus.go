package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesIngested *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	cycleStates    *prometheus.CounterVec
	regimes        *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrolearn_trades_ingested_total",
				Help: "Total number of trades ingested into the store",
			},
			[]string{"asset_id"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrolearn_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cycleStates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrolearn_cycle_states_total",
				Help: "Learning cycle outcomes by state",
			},
			[]string{"state"},
		),
		regimes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrolearn_regimes_total",
				Help: "Regime classifications by label",
			},
			[]string{"regime"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macrolearn_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTradeIngested records a trade appended to the store.
func (r *Recorder) RecordTradeIngested(assetID string) {
	r.tradesIngested.WithLabelValues(assetID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCycleState records a learning cycle outcome.
func (r *Recorder) RecordCycleState(state string) {
	r.cycleStates.WithLabelValues(state).Inc()
}

// RecordRegime records one classification result.
func (r *Recorder) RecordRegime(regime string) {
	r.regimes.WithLabelValues(regime).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
