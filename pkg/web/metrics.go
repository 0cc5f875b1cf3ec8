package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "biochat"

// Turn outcomes recorded by the turns counter.
const (
	outcomeOK           = "ok"
	outcomeEmpty        = "empty_input"
	outcomeTruncated    = "truncated"
	outcomeGenError     = "generation_error"
	outcomeLoadError    = "load_error"
	outcomeInvalidState = "invalid_state"
)

// Metrics is the Prometheus registry served on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	turns             *prometheus.CounterVec
	generationSeconds prometheus.Histogram
	resets            prometheus.Counter
	evictions         prometheus.Counter
}

// NewMetrics creates a registry with process collectors and the chat metrics.
// sessions reports the current store size.
func NewMetrics(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry:          reg,
		turns:             newCounterVec(reg, "turns_total", "Turn cycles by outcome", "outcome"),
		generationSeconds: newHistogram(reg, "generation_duration_seconds", "Time spent waiting for the generation capability", prometheus.ExponentialBuckets(0.25, 2, 10)),
		resets:            newCounter(reg, "session_resets_total", "Conversations reset by visitors"),
		evictions:         newCounter(reg, "session_evictions_total", "Idle sessions evicted from the store"),
	}
	if sessions != nil {
		promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory",
		}, func() float64 { return float64(sessions()) })
	}
	return m
}

func newCounterVec(r prometheus.Registerer, name, desc string, labels ...string) *prometheus.CounterVec {
	return promauto.With(r).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      desc,
		},
		labels,
	)
}

func newCounter(r prometheus.Registerer, name, desc string) prometheus.Counter {
	return promauto.With(r).NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      desc,
	})
}

func newHistogram(r prometheus.Registerer, name, desc string, buckets []float64) prometheus.Histogram {
	return promauto.With(r).NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      desc,
		Buckets:   buckets,
	})
}
