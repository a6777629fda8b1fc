package fem

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "feassembly"
	engineSubsystem  = "engine"
	checkSubsystem   = "check"
)

// Metrics counts assembly work and consistency-check outcomes. A nil
// *Metrics records nothing.
type Metrics struct {
	AssembliesTotal  *prometheus.CounterVec
	ElementsTotal    *prometheus.CounterVec
	AssemblySeconds  *prometheus.HistogramVec
	ChecksTotal      *prometheus.CounterVec
	CheckMaxRelError *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AssembliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "assemblies_total",
				Help:      "Assembly calls by operation and loop strategy",
			},
			[]string{"operation", "strategy"},
		),
		ElementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "elements_total",
				Help:      "Elements processed by operation",
			},
			[]string{"operation"},
		),
		AssemblySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "assembly_duration_seconds",
				Help:      "Wall time of one assembly call",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
			},
			[]string{"operation"},
		),
		ChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: checkSubsystem,
				Name:      "runs_total",
				Help:      "Consistency check runs by case and outcome",
			},
			[]string{"case", "outcome"},
		),
		CheckMaxRelError: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: checkSubsystem,
				Name:      "max_relative_error",
				Help:      "Largest relative error seen for a case in the last suite run",
			},
			[]string{"case"},
		),
	}
}

func (m *Metrics) observeAssembly(op string, strategy string, nelems int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AssembliesTotal.WithLabelValues(op, strategy).Inc()
	m.ElementsTotal.WithLabelValues(op).Add(float64(nelems))
	m.AssemblySeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCheck(name string, maxRelErr float64, passed bool) {
	if m == nil {
		return
	}
	outcome := "pass"
	if !passed {
		outcome = "fail"
	}
	m.ChecksTotal.WithLabelValues(name, outcome).Inc()
	m.CheckMaxRelError.WithLabelValues(name).Set(maxRelErr)
}
