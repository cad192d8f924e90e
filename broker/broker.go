// Package broker implements the broker supervisor (spec.md §4.7): it owns
// the listener, the client table, and the subscription registry, and
// coordinates orderly startup and shutdown.
package broker

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/axmq/broker/session"
	"github.com/axmq/broker/topic"
)

// Broker owns the listener, the client table, and the registry. Start
// binds and enters the accept loop; Stop stops accepting, closes every
// active session, and returns only once all session workers have exited.
type Broker struct {
	addr string
	log  *slog.Logger

	registry *topic.Registry
	clients  *ClientTable
	router   *Router
	metrics  *Metrics

	ln     net.Listener
	closed atomic.Bool
	group  errgroup.Group

	sessionsMu sync.Mutex
	sessions   map[*session.Session]struct{}
}

// New constructs a Broker listening on addr (host:port). reg receives the
// broker's Prometheus collectors; pass prometheus.NewRegistry() in tests to
// avoid colliding with other brokers in the same process.
func New(addr string, log *slog.Logger, reg prometheus.Registerer) *Broker {
	registry := topic.NewRegistry()
	clients := NewClientTable()
	metrics := NewMetrics(reg)

	return &Broker{
		addr:     addr,
		log:      log,
		registry: registry,
		clients:  clients,
		metrics:  metrics,
		router:   NewRouter(registry, clients, metrics, log),
		sessions: make(map[*session.Session]struct{}),
	}
}

// Start binds the listener and begins accepting connections. It returns
// once the socket is bound; the accept loop runs in the background.
func (b *Broker) Start() error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return errors.Wrap(ErrBindFailed, err.Error())
	}
	b.ln = ln

	b.group.Go(func() error {
		acceptLoop(ln, &b.closed, b.log, func(conn net.Conn) {
			b.group.Go(func() error {
				b.handleConnection(conn)
				return nil
			})
		})
		return nil
	})

	b.log.Info("broker listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address. Only valid after Start succeeds.
func (b *Broker) Addr() net.Addr {
	if b.ln == nil {
		return nil
	}
	return b.ln.Addr()
}

// Stop closes the listener and every active session, then waits for all
// session workers to exit (spec.md §4.7: "stop() returns only after all
// sessions have released registry entries").
func (b *Broker) Stop() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if b.ln != nil {
		err = b.ln.Close()
	}

	for _, sess := range b.snapshotSessions() {
		_ = sess.Close()
	}

	return errors.CombineErrors(err, b.group.Wait())
}

func (b *Broker) trackSession(sess *session.Session) {
	b.sessionsMu.Lock()
	b.sessions[sess] = struct{}{}
	b.sessionsMu.Unlock()
}

func (b *Broker) untrackSession(sess *session.Session) {
	b.sessionsMu.Lock()
	delete(b.sessions, sess)
	b.sessionsMu.Unlock()
}

func (b *Broker) snapshotSessions() []*session.Session {
	b.sessionsMu.Lock()
	defer b.sessionsMu.Unlock()

	out := make([]*session.Session, 0, len(b.sessions))
	for sess := range b.sessions {
		out = append(out, sess)
	}
	return out
}

// handleConnection runs one session's worker loop for the lifetime of its
// connection. Grounded on network/listener.go's per-connection goroutine
// pattern and JKI757-CatLocator's broker.go handleConn, generalized to
// spec.md's state machine (§4.3) instead of that reference's exact-match
// single-state loop.
func (b *Broker) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			b.log.Error("session worker panicked", "panic", r)
		}
	}()

	sess := session.New(conn)
	b.trackSession(sess)
	defer b.untrackSession(sess)

	runSessionWorker(b, sess)
}
