package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start launches the sweeper and the HTTP server. The returned channel is
// closed once SIGINT or SIGTERM arrives or the listener fails. SIGHUP
// reloads the OTP settings without restarting.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})
	listenErr := make(chan error, 1)

	a.otp.Start()

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	go func() {
		defer close(done)

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(signals)

		for {
			select {
			case err := <-listenErr:
				slog.Error("http server stopped unexpectedly", "error", err)
				return
			case sig := <-signals:
				if sig != syscall.SIGHUP {
					slog.Info("shutdown signal received", "signal", sig.String())
					return
				}

				if err := a.otp.Reload(a.ctx); err != nil {
					slog.Warn("otp settings kept after rejected reload", "error", err)
					continue
				}
				slog.Info("otp settings reloaded")
			}
		}
	}()

	return done
}

// Stop drains HTTP traffic, stops the sweeper, waits for background
// publishers and releases the remaining resources.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	steps := []closer{
		{"http server", a.httpServer.Shutdown},
		{"otp sweeper", a.otp.Stop},
		{"goroutines", func(context.Context) error { return a.goroutine.Wait() }},
	}
	steps = append(steps, a.closers...)

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to stop", "name", step.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "passcode stopped")
}
