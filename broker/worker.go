package broker

import (
	"io"

	cockroacherrors "github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"

	"github.com/axmq/broker/mqtt"
	"github.com/axmq/broker/session"
	"github.com/axmq/broker/topic"
)

// runSessionWorker drives one session through the state machine in
// spec.md §4.3: ExpectConnect → Active → Closed. It returns once the
// session transitions to Closed, after which its socket has already been
// released.
func runSessionWorker(b *Broker, sess *session.Session) {
	defer closeSession(b, sess)

	for {
		h, payload, err := mqtt.ReadPacket(sess.Conn())
		if err != nil {
			logReadError(b, sess, err)
			return
		}
		sess.Touch()

		switch sess.State() {
		case session.ExpectConnect:
			if h.Type != mqtt.CONNECT {
				b.log.Warn("expected CONNECT, closing session", "type", h.Type.String())
				return
			}
			if !handleConnect(b, sess, payload.(*mqtt.ConnectPacket)) {
				return
			}

		case session.Active:
			if !handleActivePacket(b, sess, h, payload) {
				return
			}

		default:
			return
		}
	}
}

// logReadError classifies a ReadPacket failure per spec.md §7's error
// taxonomy: transport errors (EOF, reset) are expected on peer disconnect
// and logged quietly; everything else is a protocol error, logged at warn
// and counted.
func logReadError(b *Broker, sess *session.Session, err error) {
	if cockroacherrors.Is(err, io.EOF) || cockroacherrors.Is(err, mqtt.ErrUnexpectedEOF) {
		b.log.Debug("session socket closed", "client_id", sess.ClientID(), "err", err)
		return
	}
	b.log.Warn("protocol error, closing session", "client_id", sess.ClientID(), "err", err)
	b.metrics.ProtocolErrors.Inc()
}

// handleConnect processes the only valid packet in ExpectConnect. It
// returns false if the session should close immediately after responding
// (unsupported protocol level) or true once the session is Active.
func handleConnect(b *Broker, sess *session.Session, pkt *mqtt.ConnectPacket) bool {
	if pkt.ProtocolLevel != 3 && pkt.ProtocolLevel != 4 {
		writeConnack(sess, false, mqtt.ConnectUnacceptableProtocol)
		return false
	}

	b.log.Debug("CONNECT received",
		"client_id", pkt.ClientID,
		"clean_session", pkt.CleanSession,
		"has_password", pkt.PasswordFlag)

	evictDuplicate(b, pkt.ClientID, sess)

	sess.SetClientID(pkt.ClientID)
	if !sess.Activate() {
		return false
	}
	b.clients.Register(pkt.ClientID, sess)
	b.metrics.ConnectedSessions.Set(float64(b.clients.Count()))

	return writeConnack(sess, false, mqtt.ConnectAccepted)
}

// redactPayload formats a PUBLISH payload for debug logging without ever
// emitting raw message bytes: only its length is safe to print verbatim.
func redactPayload(payload []byte) redact.RedactableString {
	return redact.Sprintf("%d bytes", len(payload))
}

// evictDuplicate implements spec.md §4.3's corrected duplicate-client_id
// behavior: a CONNECT presenting an in-use client_id evicts the prior
// session (unregisters its subscriptions, closes its socket) before the
// new session becomes Active.
func evictDuplicate(b *Broker, clientID string, incoming *session.Session) {
	prior, ok := b.clients.Get(clientID)
	if !ok || prior == incoming {
		return
	}

	filters := prior.Subscriptions()
	b.registry.UnsubscribeAll(filters, clientID)
	_ = prior.Close()
	b.clients.RemoveIfCurrent(clientID, prior)
}

func writeConnack(sess *session.Session, sessionPresent bool, returnCode byte) bool {
	pkt := &mqtt.ConnackPacket{SessionPresent: sessionPresent, ReturnCode: returnCode}
	w := &byteSliceWriter{}
	if err := pkt.Encode(w); err != nil {
		return false
	}
	if _, err := sess.Write(w.buf); err != nil {
		return false
	}
	return returnCode == mqtt.ConnectAccepted
}

// handleActivePacket dispatches one packet received while Active. It
// returns false when the session must close (DISCONNECT, a packet type not
// handled while Active, or a failed write). Malformed packets never reach
// it: ReadPacket reports them to the caller.
func handleActivePacket(b *Broker, sess *session.Session, h *mqtt.FixedHeader, payload any) bool {
	switch h.Type {
	case mqtt.SUBSCRIBE:
		return handleSubscribe(b, sess, payload.(*mqtt.SubscribePacket))

	case mqtt.UNSUBSCRIBE:
		return handleUnsubscribe(b, sess, payload.(*mqtt.UnsubscribePacket))

	case mqtt.PUBLISH:
		p := payload.(*mqtt.PublishPacket)
		b.log.Debug("PUBLISH received", "topic", p.Topic, "payload", redactPayload(p.Payload))
		b.router.Publish(p.Topic, p.Payload)
		return true

	case mqtt.PINGREQ:
		w := &byteSliceWriter{}
		_ = (&mqtt.PingrespPacket{}).Encode(w)
		_, err := sess.Write(w.buf)
		return err == nil

	case mqtt.DISCONNECT:
		return false

	default:
		b.log.Warn("unexpected packet type in Active state, closing session", "type", h.Type.String())
		return false
	}
}

// handleSubscribe implements spec.md §4.3's SUBSCRIBE transition: every
// requested QoS is pinned down to 0 (max_supported_qos=0), since this core
// never serves QoS 1/2 (§9).
func handleSubscribe(b *Broker, sess *session.Session, pkt *mqtt.SubscribePacket) bool {
	codes := make([]byte, len(pkt.Subscriptions))
	for i, s := range pkt.Subscriptions {
		if err := topic.ValidateTopicFilter(s.TopicFilter); err != nil {
			codes[i] = 0x80 // failure
			continue
		}
		b.registry.Subscribe(s.TopicFilter, sess.ClientID())
		sess.AddSubscription(s.TopicFilter)
		codes[i] = 0 // min(requested_qos, 0) == 0
	}
	b.metrics.Subscriptions.Set(float64(b.registry.Count()))

	suback := &mqtt.SubackPacket{PacketID: pkt.PacketID, ReturnCodes: codes}
	w := &byteSliceWriter{}
	if err := suback.Encode(w); err != nil {
		return false
	}
	_, err := sess.Write(w.buf)
	return err == nil
}

func handleUnsubscribe(b *Broker, sess *session.Session, pkt *mqtt.UnsubscribePacket) bool {
	for _, filter := range pkt.TopicFilters {
		b.registry.Unsubscribe(filter, sess.ClientID())
		sess.RemoveSubscription(filter)
	}
	b.metrics.Subscriptions.Set(float64(b.registry.Count()))

	unsuback := &mqtt.UnsubackPacket{PacketID: pkt.PacketID}
	w := &byteSliceWriter{}
	if err := unsuback.Encode(w); err != nil {
		return false
	}
	_, err := sess.Write(w.buf)
	return err == nil
}

// closeSession implements spec.md §4.3's Closed entry action: remove all
// of this session's filters from the registry, remove client_id from the
// client table only if it still points at this session, close the socket.
func closeSession(b *Broker, sess *session.Session) {
	clientID := sess.ClientID()
	if clientID != "" {
		filters := sess.Subscriptions()
		b.registry.UnsubscribeAll(filters, clientID)
		b.clients.RemoveIfCurrent(clientID, sess)
		b.metrics.ConnectedSessions.Set(float64(b.clients.Count()))
		b.metrics.Subscriptions.Set(float64(b.registry.Count()))
	}
	_ = sess.Close()
}
