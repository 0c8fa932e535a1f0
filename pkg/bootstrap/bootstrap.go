// Package bootstrap is the shared entrypoint of every CampusPrint process.
// It loads .env and config, builds the service logger, and runs the
// process body until SIGINT or SIGTERM.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const shutdownGrace = 10 * time.Second

// Func is a process body. It should block until ctx ends.
type Func func(ctx context.Context, cfg *config.Config, logg *logger.Logger) error

// Main runs fn as the service kind and exits non-zero when it fails.
func Main(kind string, fn Func) {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, kind, fn, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, kind string, fn Func, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: kind, Output: out}).Error(ctx, "load config", err)
		return 1
	}
	cfg.Service.Kind = kind

	logg := logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogConsole(),
		Output:      out,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": kind,
		"instance":    cfg.Service.Instance(),
	})

	logg.Info(ctx, "starting")
	if err := fn(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "stopped", err)
		return 1
	}
	logg.Info(ctx, "shut down")
	return 0
}

// CloseQuietly is for deferred Close calls. A failure is logged with the
// resource name and otherwise ignored.
func CloseQuietly(ctx context.Context, logg *logger.Logger, resource string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", resource), "close failed", err)
	}
}

// Serve runs srv until ctx ends, then gives in-flight requests shutdownGrace
// to finish.
func Serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	return nil
}
