package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	httpapi "github.com/i474232898/sensor-assistant/internal/api/http"
	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/scheduler"
	"github.com/i474232898/sensor-assistant/internal/store"
)

// RunServe serves the HTTP API until ctx is done.
func RunServe(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	backend, err := OpenBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	panel := newPanel(cfg, logger)
	session := newSession(ctx, cfg, logger, backend, panel)
	for _, n := range session.Notices() {
		logger.Warn("session notice", "message", n)
	}

	app := httpapi.NewApp(Name)
	httpapi.RegisterRoutes(app, session, panel)

	if cfg.ReloadInterval > 0 {
		sched := scheduler.New(logger)
		if err := sched.Add(scheduler.Job{
			Name:     "reload",
			Interval: cfg.ReloadInterval,
			Run: func(ctx context.Context) error {
				// Load failures are reported through the session.
				_ = session.Reload(ctx)
				return nil
			},
		}); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	if backend.Source != "" {
		g.Go(func() error {
			err := store.Watch(gctx, backend.Source, logger, func() {
				_ = session.Reload(gctx)
			})
			if err != nil {
				logger.Warn("store watch stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}
