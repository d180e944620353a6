package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	LearningLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "macrolearn",
			Subsystem: "learning",
			Name:      "latency_seconds",
			Help:      "Latency of learning endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	LearningErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macrolearn",
			Subsystem: "learning",
			Name:      "errors_total",
			Help:      "Errors by learning endpoint",
		},
		[]string{"endpoint"},
	)

	CycleStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macrolearn",
			Subsystem: "learning",
			Name:      "cycle_states_total",
			Help:      "Learning cycle outcomes by state",
		},
		[]string{"state"},
	)

	RegimeLabels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macrolearn",
			Subsystem: "regime",
			Name:      "classifications_total",
			Help:      "Regime classifications by label",
		},
		[]string{"regime"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(LearningLatency, LearningErrors, CycleStates, RegimeLabels)
	})
}
