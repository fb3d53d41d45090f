package observability

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Endpoint serves the Prometheus metrics over HTTP when telemetry is
// enabled in the configuration.
type Endpoint struct {
	server *http.Server
	log    *slog.Logger
}

// NewEndpoint builds an HTTP endpoint exposing the given metrics on addr.
func NewEndpoint(addr string, m *Metrics, log *slog.Logger) *Endpoint {
	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	return &Endpoint{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start begins serving in a background goroutine. Errors other than a
// clean shutdown are logged, not returned.
func (e *Endpoint) Start() {
	go func() {
		e.log.Info("metrics endpoint listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the endpoint, waiting up to five seconds for in-flight
// requests to complete.
func (e *Endpoint) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		e.log.Warn("metrics endpoint shutdown", "error", err)
	}
}
