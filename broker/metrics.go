package broker

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the broker's Prometheus collectors. client_golang sits in
// the teacher's dependency graph only transitively; the supervisor gives it
// a direct, concrete home here rather than leaving it unused (see
// DESIGN.md).
type Metrics struct {
	ConnectedSessions prometheus.Gauge
	Subscriptions     prometheus.Gauge
	MessagesRouted    prometheus.Counter
	ProtocolErrors    prometheus.Counter
}

// NewMetrics constructs the broker's collectors and registers them against
// reg. Passing a fresh prometheus.NewRegistry() keeps tests isolated from
// the global default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqttbroker_connected_sessions",
			Help: "Number of sessions currently registered in the client table.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqttbroker_subscriptions_total",
			Help: "Number of (topic_filter, client_id) entries in the subscription registry.",
		}),
		MessagesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttbroker_messages_routed_total",
			Help: "Number of PUBLISH deliveries successfully written to a subscriber socket.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttbroker_protocol_errors_total",
			Help: "Number of sessions closed due to a protocol-layer decode error.",
		}),
	}

	reg.MustRegister(m.ConnectedSessions, m.Subscriptions, m.MessagesRouted, m.ProtocolErrors)
	return m
}
