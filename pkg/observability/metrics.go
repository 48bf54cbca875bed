package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conserje"

// Capability names used as label values.
const (
	CapabilityCompletion = "completion"
	CapabilityEmbedding  = "embedding"
)

// Metrics groups the collectors exported by the engine.
type Metrics struct {
	Turns              *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	CapabilityCalls    *prometheus.CounterVec
	CapabilityFailures *prometheus.CounterVec
	CapabilityDuration *prometheus.HistogramVec
	GuardRejections    *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of dispatched turns",
			},
			[]string{"branch", "mode"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Time spent dispatching a turn",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"branch"},
		),
		CapabilityCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_calls_total",
				Help:      "Calls made to external capabilities",
			},
			[]string{"capability"},
		),
		CapabilityFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_failures_total",
				Help:      "Capability calls that failed and were degraded",
			},
			[]string{"capability"},
		),
		CapabilityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "capability_duration_seconds",
				Help:      "Latency of external capability calls",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"capability"},
		),
		GuardRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_rejections_total",
				Help:      "Candidate replies replaced by a bridge sentence",
			},
			[]string{"reason"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "KV cache lookups by result",
			},
			[]string{"cache", "result"},
		),
	}
}

// Collectors returns every collector, for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Turns, m.TurnDuration,
		m.CapabilityCalls, m.CapabilityFailures, m.CapabilityDuration,
		m.GuardRejections, m.CacheLookups,
	}
}

// Register registers the collectors with reg.
// Collectors already registered by an identical Metrics are tolerated.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTurn records a dispatched turn.
func (m *Metrics) ObserveTurn(branch, mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(branch, mode).Inc()
	m.TurnDuration.WithLabelValues(branch).Observe(elapsed.Seconds())
}

// GuardRejected records a guard rejection.
func (m *Metrics) GuardRejected(reason string) {
	if m == nil {
		return
	}
	m.GuardRejections.WithLabelValues(reason).Inc()
}

// CapabilityCall records one capability call and whether it failed.
func (m *Metrics) CapabilityCall(capability string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.CapabilityCalls.WithLabelValues(capability).Inc()
	m.CapabilityDuration.WithLabelValues(capability).Observe(elapsed.Seconds())
	if err != nil {
		m.CapabilityFailures.WithLabelValues(capability).Inc()
	}
}

// CacheLookup records a hit or a miss on the named cache.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}
