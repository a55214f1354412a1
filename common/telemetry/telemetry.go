package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/xhhao/redisconnector/common/logger"
)

// Telemetry serves the runtime profiling endpoints on a loopback port
type Telemetry struct {
	log       *logger.Logger
	pprofAddr string
	srv       *http.Server
}

// New creates telemetry components. A zero port disables profiling.
func New(pprofPort int, log *logger.Logger) *Telemetry {
	t := &Telemetry{log: log.WithComponent("telemetry")}
	if pprofPort > 0 {
		t.pprofAddr = fmt.Sprintf("localhost:%d", pprofPort)
	}
	return t
}

// Enabled reports whether a profiling port was configured
func (t *Telemetry) Enabled() bool {
	return t.pprofAddr != ""
}

// Handler returns the pprof mux
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start binds the pprof listener and serves it until ctx is cancelled
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}

	ln, err := net.Listen("tcp", t.pprofAddr)
	if err != nil {
		return fmt.Errorf("failed to bind pprof listener: %w", err)
	}
	t.srv = &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		t.log.Info("pprof server starting", "addr", ln.Addr().String())
		if err := t.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	return nil
}

// Stop closes the pprof listener
func (t *Telemetry) Stop() error {
	if t.srv == nil {
		return nil
	}
	return t.srv.Close()
}

// RecordDuration logs how long an operation took
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
