package broker

import (
	"log/slog"

	"github.com/axmq/broker/mqtt"
	"github.com/axmq/broker/topic"
)

// Router fans a PUBLISH out to every matched subscriber (spec.md §4.5).
// Delivery is best-effort: a send failure closes that one session but
// never affects delivery to the others.
type Router struct {
	registry *topic.Registry
	clients  *ClientTable
	metrics  *Metrics
	log      *slog.Logger
}

// NewRouter builds a Router over the given registry and client table.
func NewRouter(registry *topic.Registry, clients *ClientTable, metrics *Metrics, log *slog.Logger) *Router {
	return &Router{registry: registry, clients: clients, metrics: metrics, log: log}
}

// Publish delivers payload on topic to every session subscribed to a
// matching filter. The outbound PUBLISH is always encoded at QoS 0 with
// RETAIN unset (spec.md §4.5); the publisher's own QoS/DUP/retain are not
// propagated to subscribers since this core never retransmits and never
// stores a retained message (§9).
func (r *Router) Publish(topicName string, payload []byte) {
	clientIDs := r.registry.Match(topicName)
	if len(clientIDs) == 0 {
		return
	}

	pkt := &mqtt.PublishPacket{
		QoS:     mqtt.QoS0,
		Retain:  false,
		Topic:   topicName,
		Payload: payload,
	}
	w := &byteSliceWriter{}
	if err := pkt.Encode(w); err != nil {
		r.log.Warn("failed to encode routed PUBLISH", "topic", topicName, "err", err)
		return
	}

	for _, clientID := range clientIDs {
		sess, ok := r.clients.Get(clientID)
		if !ok {
			continue
		}

		if _, err := sess.Write(w.buf); err != nil {
			r.log.Debug("routed PUBLISH write failed, closing session", "client_id", clientID, "err", err)
			_ = sess.Close()
			continue
		}

		if r.metrics != nil {
			r.metrics.MessagesRouted.Inc()
		}
	}
}

// byteSliceWriter is the minimal io.Writer adapter used to encode a packet
// once and reuse the resulting bytes across every subscriber's Write call.
type byteSliceWriter struct {
	buf []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
