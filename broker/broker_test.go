package broker

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/axmq/broker/mqtt"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	log := slog.New(slog.NewTextHandler(nopWriter{}, nil))
	b := New("127.0.0.1:0", log, prometheus.NewRegistry())
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Stop() })
	return b
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func dial(t *testing.T, b *Broker) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", b.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendPacket(t *testing.T, conn net.Conn, p interface{ Encode(w io.Writer) error }) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	_, err := conn.Write(buf.Bytes())
	require.NoError(t, err)
}

func connectAndExpectAccept(t *testing.T, conn net.Conn, clientID string) {
	t.Helper()
	sendPacket(t, conn, &mqtt.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		ClientID:      clientID,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := mqtt.ReadPacket(conn)
	require.NoError(t, err)
	ack, ok := payload.(*mqtt.ConnackPacket)
	require.True(t, ok)
	require.Equal(t, mqtt.ConnectAccepted, ack.ReturnCode)
}

func TestBrokerSinglePublishSubscribe(t *testing.T) {
	b := newTestBroker(t)

	sub := dial(t, b)
	connectAndExpectAccept(t, sub, "subscriber-1")
	sendPacket(t, sub, &mqtt.SubscribePacket{
		PacketID:      1,
		Subscriptions: []mqtt.Subscription{{TopicFilter: "sensors/temp", QoS: mqtt.QoS0}},
	})
	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := mqtt.ReadPacket(sub)
	require.NoError(t, err)
	suback, ok := payload.(*mqtt.SubackPacket)
	require.True(t, ok)
	require.Equal(t, []byte{0}, suback.ReturnCodes)

	pub := dial(t, b)
	connectAndExpectAccept(t, pub, "publisher-1")
	sendPacket(t, pub, &mqtt.PublishPacket{
		QoS:     mqtt.QoS0,
		Topic:   "sensors/temp",
		Payload: []byte("21.5"),
	})

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err = mqtt.ReadPacket(sub)
	require.NoError(t, err)
	got, ok := payload.(*mqtt.PublishPacket)
	require.True(t, ok)
	require.Equal(t, "sensors/temp", got.Topic)
	require.Equal(t, []byte("21.5"), got.Payload)
}

func TestBrokerWildcardRouting(t *testing.T) {
	b := newTestBroker(t)

	sub := dial(t, b)
	connectAndExpectAccept(t, sub, "subscriber-wild")
	sendPacket(t, sub, &mqtt.SubscribePacket{
		PacketID:      1,
		Subscriptions: []mqtt.Subscription{{TopicFilter: "sensors/+/temp", QoS: mqtt.QoS0}},
	})
	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := mqtt.ReadPacket(sub)
	require.NoError(t, err)

	pub := dial(t, b)
	connectAndExpectAccept(t, pub, "publisher-wild")
	sendPacket(t, pub, &mqtt.PublishPacket{
		QoS:   mqtt.QoS0,
		Topic: "sensors/room1/temp",
	})

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := mqtt.ReadPacket(sub)
	require.NoError(t, err)
	got, ok := payload.(*mqtt.PublishPacket)
	require.True(t, ok)
	require.Equal(t, "sensors/room1/temp", got.Topic)
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBroker(t)

	sub := dial(t, b)
	connectAndExpectAccept(t, sub, "subscriber-unsub")
	sendPacket(t, sub, &mqtt.SubscribePacket{
		PacketID:      1,
		Subscriptions: []mqtt.Subscription{{TopicFilter: "a/b", QoS: mqtt.QoS0}},
	})
	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := mqtt.ReadPacket(sub)
	require.NoError(t, err)

	sendPacket(t, sub, &mqtt.UnsubscribePacket{PacketID: 2, TopicFilters: []string{"a/b"}})
	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := mqtt.ReadPacket(sub)
	require.NoError(t, err)
	_, ok := payload.(*mqtt.UnsubackPacket)
	require.True(t, ok)

	pub := dial(t, b)
	connectAndExpectAccept(t, pub, "publisher-unsub")
	sendPacket(t, pub, &mqtt.PublishPacket{QoS: mqtt.QoS0, Topic: "a/b", Payload: []byte("x")})

	// no further delivery should arrive: the read failing once the short
	// deadline expires (ReadPacket reports it as a wrapped
	// ErrUnexpectedEOF) is the expected outcome, not a packet.
	sub.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = mqtt.ReadPacket(sub)
	require.Error(t, err)
}

func TestBrokerUnsupportedProtocolLevelCloses(t *testing.T) {
	b := newTestBroker(t)

	conn := dial(t, b)
	sendPacket(t, conn, &mqtt.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 1, // unacceptable protocol level
		ClientID:      "bad-client",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := mqtt.ReadPacket(conn)
	require.NoError(t, err)
	ack, ok := payload.(*mqtt.ConnackPacket)
	require.True(t, ok)
	require.Equal(t, mqtt.ConnectUnacceptableProtocol, ack.ReturnCode)

	// the session must close its side after rejecting: a subsequent read
	// observes EOF rather than hanging.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err)
}

func TestBrokerDuplicateClientIDEvictsPrior(t *testing.T) {
	b := newTestBroker(t)

	first := dial(t, b)
	connectAndExpectAccept(t, first, "dup-client")

	second := dial(t, b)
	connectAndExpectAccept(t, second, "dup-client")

	// the first connection's socket must be closed once the duplicate
	// CONNECT evicts it.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := first.Read(buf)
	require.Error(t, err)
}

func TestBrokerPingPong(t *testing.T) {
	b := newTestBroker(t)

	conn := dial(t, b)
	connectAndExpectAccept(t, conn, "pinger")

	sendPacket(t, conn, &mqtt.PingreqPacket{})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	h, _, err := mqtt.ReadPacket(conn)
	require.NoError(t, err)
	require.Equal(t, mqtt.PINGRESP, h.Type)
}
