package zk

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects the Prometheus instrumentation a Conn emits. All
// methods are nil-safe: calls on a nil *Metrics are no-ops, so a Conn
// created without metrics configured pays no registration cost — mirrors
// the nil-safe SessionMetrics pattern used for NFS session tracking
// elsewhere in the retrieval pack.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	ResponsesTotal   *prometheus.CounterVec
	WatchFiresTotal  prometheus.Counter
	SessionState     prometheus.Gauge
	PendingRequests  prometheus.Gauge
}

// NewMetrics creates Conn instrumentation and registers it with reg. If reg
// is nil the collectors are created but never registered, which is useful
// for tests that want the recording methods to be callable without a
// registry around.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repeekooz",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Requests submitted to the server, labeled by opcode.",
		}, []string{"opcode"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repeekooz",
			Subsystem: "session",
			Name:      "responses_total",
			Help:      "Replies received from the server, labeled by opcode and whether err != 0.",
		}, []string{"opcode", "failed"}),
		WatchFiresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repeekooz",
			Subsystem: "watch",
			Name:      "fires_total",
			Help:      "Watcher callbacks invoked by the event dispatch task.",
		}),
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "repeekooz",
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session State as its integer value.",
		}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "repeekooz",
			Subsystem: "session",
			Name:      "pending_requests",
			Help:      "Requests submitted but not yet replied to.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.RequestsTotal, m.ResponsesTotal, m.WatchFiresTotal, m.SessionState, m.PendingRequests} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}

	return m
}

func (m *Metrics) recordRequest(op opcode) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(op.String()).Inc()
	m.PendingRequests.Inc()
}

func (m *Metrics) recordResponse(op opcode, failed bool) {
	if m == nil {
		return
	}
	label := "false"
	if failed {
		label = "true"
	}
	m.ResponsesTotal.WithLabelValues(op.String(), label).Inc()
	m.PendingRequests.Dec()
}

func (m *Metrics) recordWatchFire() {
	if m == nil {
		return
	}
	m.WatchFiresTotal.Inc()
}

func (m *Metrics) recordState(s State) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(s))
}
