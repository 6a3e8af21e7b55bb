package pixelize

import "github.com/prometheus/client_golang/prometheus"

// Frame results recorded by Metrics.
const (
	ResultRendered = "rendered"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Metrics holds the effect's collectors. A nil *Metrics records nothing.
type Metrics struct {
	Frames          *prometheus.CounterVec
	Blits           *prometheus.CounterVec
	AcquireFailures prometheus.Counter
	LiveTargets     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixelize_frames_total",
				Help: "Frames handled by the pixelize stage by result",
			},
			[]string{"result"},
		),
		Blits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixelize_blits_total",
				Help: "Blits recorded by the pixelize stage by pass",
			},
			[]string{"pass"},
		),
		AcquireFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelize_acquire_failures_total",
			Help: "Transient target allocations refused by the host",
		}),
		LiveTargets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelize_live_targets",
			Help: "Transient targets currently held by the pool",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Blits, m.AcquireFailures, m.LiveTargets)
	}
	return m
}

func (m *Metrics) frame(result string) {
	if m != nil {
		m.Frames.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) blit(pass *ShaderPass) {
	if m == nil {
		return
	}
	label := "copy"
	if pass != nil && pass.Pass == PassQuantize {
		label = "quantize"
	}
	m.Blits.WithLabelValues(label).Inc()
}

func (m *Metrics) acquireFailed() {
	if m != nil {
		m.AcquireFailures.Inc()
	}
}

func (m *Metrics) live(n int) {
	if m != nil {
		m.LiveTargets.Set(float64(n))
	}
}
