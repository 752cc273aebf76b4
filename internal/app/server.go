package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start serves HTTP in the background. The returned channel is closed once
// SIGINT, SIGTERM or SIGHUP arrives; the caller then runs Stop.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		slog.Error("failed to listen http server", "address", a.httpServer.Addr, "error", err)
		os.Exit(1)
	}

	go func() {
		if err := <-a.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-sigCtx.Done()
		slog.Info("termination signal received")
		close(done)
	}()

	return done
}

// Serve runs the HTTP server on l and marks the app ready.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	slog.Info("http server listening", "address", l.Addr().String())
	a.ready.Store(true)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop reports not-ready, waits app.server.shutdown_drain_seconds so load
// balancers stop routing, then shuts the server down, cancels consumers and
// releases resources in reverse order of acquisition.
func (a *App) Stop(ctx context.Context) {
	a.ready.Store(false)

	if drain := a.config.GetSecond("app.server.shutdown_drain_seconds"); drain > 0 {
		select {
		case <-time.After(drain):
		case <-ctx.Done():
		}
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "HTTP Server", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	slog.InfoContext(ctx, "waiting for all goroutine to finish")
	if err := a.goroutine.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "error from goroutines executions", "error", err)
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application gracefully shutdown")
}

// onClose registers fn to run during Stop. Closers run last-in first-out.
func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}
