package broker

import (
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// acceptLoop accepts on the already-bound ln (Broker.Start does the bind)
// and spawns a session worker per accepted connection until closed is set
// (spec.md §4.6). Grounded on the teacher's
// network/listener.go acceptLoop, trimmed of TLS, connection pooling, and
// per-connection read/write buffer tuning, none of which spec.md's external
// interfaces call for.
func acceptLoop(ln net.Listener, closed *atomic.Bool, log *slog.Logger, handle func(net.Conn)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if closed.Load() {
				return
			}
			log.Warn("accept failed, retrying", "err", err)
			continue
		}
		go handle(conn)
	}
}

// ErrBindFailed wraps a net.Listen failure, surfaced to the caller of
// Broker.Start per spec.md §7's supervisor error taxonomy.
var ErrBindFailed = errors.New("failed to bind listener")
