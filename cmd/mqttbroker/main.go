// Command mqttbroker runs the broker supervisor: bind a TCP listener for
// MQTT 3.1.1 clients and optionally expose Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axmq/broker/broker"
	"github.com/axmq/broker/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		host        = flag.String("host", "0.0.0.0", "interface to bind the MQTT listener on")
		port        = flag.Int("port", 1883, "port to bind the MQTT listener on")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
		logLevel    = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			fmt.Fprintf(os.Stderr, "sentry init failed: %v\n", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.NewSlogLogger(parseLevel(*logLevel), os.Stdout)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	reg := prometheus.NewRegistry()
	b := broker.New(addr, log, reg)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	if err := b.Start(); err != nil {
		log.Error("failed to start broker", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	if err := b.Stop(); err != nil {
		log.Error("error during shutdown", "err", err)
		return 1
	}

	return 0
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
