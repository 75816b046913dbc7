package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	api "github.com/site360/site360-go/internal/api/v2"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic evaluation scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.mqtt != nil {
		connectCtx, cancel := context.WithTimeout(ctx, a.settings.MQTT.ConnectTimeout.Std())
		if err := a.mqtt.Connect(connectCtx); err != nil {
			a.log.Warn("mqtt broker unreachable, continuing without publication", logger.Error(err))
		}
		cancel()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	api.New(e, api.Deps{
		Scores:              a.scores,
		Alerts:              a.alerts,
		Lifecycle:           dispatch.NewLifecycle(a.alerts),
		Notifier:            a.notifier,
		Metrics:             a.metrics,
		Rules:               a.rules,
		LatestScoreCacheTTL: a.settings.Server.LatestScoreCacheTTL.Std(),
		Log:                 a.log.With(logger.String("component", "api")),
	})

	var sched *scheduler.Scheduler
	if a.settings.Scheduler.Enabled {
		sched = scheduler.New(&a.settings.Scheduler,
			a.settings.Database.ObservationRetention.Std(), a.runner, a.observations,
			a.log.With(logger.String("component", "scheduler")))
		if err := sched.Start(); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf("%s:%d", a.settings.Server.Host, a.settings.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", logger.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case s := <-sig:
		a.log.Info("shutting down", logger.String("signal", s.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
