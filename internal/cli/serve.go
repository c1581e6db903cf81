package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/waypoint/pkg/adapters/http"
)

// ShutdownTimeout bounds how long outstanding requests may take once the
// server is asked to stop.
const ShutdownTimeout = 5 * time.Second

// NewHTTPHandler exposes the runtime over the JSON API.
func NewHTTPHandler(rt *Runtime) (http.Handler, error) {
	return httpAdapter.NewHandler(rt.Engine, rt.Library,
		httpAdapter.WithStreams(rt.Streams),
		httpAdapter.WithMetrics(rt.Metrics),
		httpAdapter.WithLogger(rt.Logger),
	)
}

// Serve runs the HTTP API on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, rt *Runtime, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, rt, ln)
}

func serveListener(ctx context.Context, rt *Runtime, ln net.Listener) error {
	handler, err := NewHTTPHandler(rt)
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		rt.Logger.Info("starting waypoint server", "address", ln.Addr().String(), "workflows", rt.Library.Names())
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		rt.Logger.Info("shutting down waypoint server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("failed to close server: %w", err)
			}
		}
		rt.Logger.Info("waypoint server stopped gracefully")
		return nil
	}
}
