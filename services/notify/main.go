package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	mw "github.com/diagnosis/zayna-hotel/pkg/middleware"
	"github.com/diagnosis/zayna-hotel/services/notify/internal/notifier"
)

func main() {
	cfg := config.Load()
	if cfg.NATS.URL == "" {
		logger.Error("NATS_URL is required for the notify service")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewDefault("zayna_notify")

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}

	mail := mailer.New(mailer.NewSender(cfg.Email), cfg.Email.FromName, cfg.Stripe.DefaultCurrency)
	if err := notifier.New(mail, m).Subscribe(bus, cfg.NATS.Queue); err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	// Health and metrics only
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(mw.Metrics(m))

	srv := &http.Server{
		Addr:        ":" + cfg.Server.NotifyPort,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting notify service", "port", cfg.Server.NotifyPort, "queue", cfg.NATS.Queue)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notify service...")

		// Let in-flight confirmations finish before the connection closes.
		if err := bus.Drain(); err != nil {
			logger.Warn("NATS drain failed", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
