package peerpad

import (
	"github.com/prometheus/client_golang/prometheus"
)

var opsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "peerpad",
	Subsystem: "engine",
	Name:      "ops_applied",
}, []string{"kind", "source"})

var opsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "peerpad",
	Subsystem: "engine",
	Name:      "ops_rejected",
}, []string{"reason"})

var opsBuffered = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "peerpad",
	Subsystem: "engine",
	Name:      "ops_buffered",
})

var sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "peerpad",
	Subsystem: "engine",
	Name:      "sessions_active",
})

// RegisterMetrics registers the engine counters with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(opsApplied, opsRejected, opsBuffered, sessionsActive)
}

// StateCollector exposes live per-engine state as gauges without the engine
// having to push anything.
type StateCollector struct {
	engine *Engine

	sessions     *prometheus.Desc
	participants *prometheus.Desc
	pendingOps   *prometheus.Desc
	logLength    *prometheus.Desc
}

func NewStateCollector(engine *Engine) *StateCollector {
	return &StateCollector{
		engine: engine,
		sessions: prometheus.NewDesc(
			"peerpad_state_sessions",
			"Number of live sessions",
			nil, nil,
		),
		participants: prometheus.NewDesc(
			"peerpad_state_participants_online",
			"Online participants per session",
			[]string{"session"}, nil,
		),
		pendingOps: prometheus.NewDesc(
			"peerpad_state_pending_ops",
			"Remote operations held for missing causal history",
			[]string{"session"}, nil,
		),
		logLength: prometheus.NewDesc(
			"peerpad_state_log_length",
			"Applied operations per session document",
			[]string{"session"}, nil,
		),
	}
}

func (sc *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.sessions
	ch <- sc.participants
	ch <- sc.pendingOps
	ch <- sc.logLength
}

func (sc *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		sc.sessions, prometheus.GaugeValue, float64(sc.engine.sessions.Size()))

	sc.engine.sessions.Range(func(id string, ls *liveSession) bool {
		online := 0
		ls.lock.Lock()
		for i := range ls.rec.Participants {
			if ls.rec.Participants[i].Online {
				online++
			}
		}
		pending := len(ls.pending)
		ls.lock.Unlock()

		ch <- prometheus.MustNewConstMetric(
			sc.participants, prometheus.GaugeValue, float64(online), id)
		ch <- prometheus.MustNewConstMetric(
			sc.pendingOps, prometheus.GaugeValue, float64(pending), id)
		ch <- prometheus.MustNewConstMetric(
			sc.logLength, prometheus.GaugeValue, float64(ls.doc.Version()), id)
		return true
	})
}
