package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/zayna-hotel/pkg/cache"
	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/database"
	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/assistant"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/catalog"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/handlers"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/payments"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/service"
)

func main() {
	cfg := config.Load()
	if cfg.IsProduction() && cfg.Auth.JWTSecret == "dev-only-secret-change-in-prod" {
		logger.Error("JWT_SECRET must be set in production")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewDefault("zayna")

	// Connect to MongoDB
	mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Error("Failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Optional Postgres rate limiter
	var limiter handlers.RateLimiter
	var rateLimits repository.RateLimitRepository
	if cfg.Database.URL != "" {
		pool, err := database.ConnectPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rateLimits = repository.NewRateLimitRepository(pool)
		if err := rateLimits.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to create rate limit schema", "error", err)
			os.Exit(1)
		}
		limiter = rateLimits
	} else {
		logger.Warn("DATABASE_URL not set, rate limiting disabled")
	}

	// Event bus
	var bus events.Publisher
	if cfg.NATS.URL != "" {
		nbus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nbus.Drain()
		bus = nbus
	} else {
		logger.Warn("NATS_URL not set, events stay in-process")
		bus = events.NewMemoryBus()
	}

	// Payments
	var provider payments.Provider
	if cfg.Stripe.SecretKey != "" {
		provider = payments.NewStripeProvider(cfg.Stripe.SecretKey, nil)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents disabled")
	}

	faq, err := assistant.New()
	if err != nil {
		logger.Error("Failed to load chat rules", "error", err)
		os.Exit(1)
	}
	var chatOpts []service.ChatOption
	if cfg.Chat.GeminiAPIKey != "" {
		gemini, err := assistant.NewGemini(ctx, assistant.GeminiConfig{
			APIKey:  cfg.Chat.GeminiAPIKey,
			Model:   cfg.Chat.GeminiModel,
			BaseURL: cfg.Chat.GeminiBaseURL,
			Timeout: cfg.Chat.GeminiTimeout,
		})
		if err != nil {
			logger.Error("Failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		chatOpts = append(chatOpts, service.WithResponder(gemini))
		logger.Info("Chat replies use Gemini", "model", cfg.Chat.GeminiModel)
	} else {
		logger.Info("GEMINI_API_KEY not set, chat answers from the FAQ")
	}
	cat := catalog.MustDefault()
	mail := mailer.New(mailer.NewSender(cfg.Email), cfg.Email.FromName, cfg.Stripe.DefaultCurrency)

	// Initialize repositories
	guestRepo := repository.NewGuestRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	chatRepo := repository.NewChatRepository(db)
	spaRepo := repository.NewSpaBookingRepository(db)
	diningRepo := repository.NewDiningOrderRepository(db)
	contactRepo := repository.NewContactRepository(db)
	cooldownRepo := repository.NewCooldownRepository(rdb)
	sessionRepo := repository.NewSessionRepository(rdb)
	idempotencyRepo := repository.NewIdempotencyRepository(rdb)

	// Initialize services
	authService := service.NewAuthService(guestRepo, otpRepo, cooldownRepo, sessionRepo, mail, bus, m, cfg, service.DefaultHashing)
	bookingService := service.NewBookingService(spaRepo, diningRepo, guestRepo, cat, bus, m)
	chatService := service.NewChatService(faq, chatRepo, m, cfg.Chat, chatOpts...)
	paymentService := service.NewPaymentService(provider, cfg.Stripe.DefaultCurrency, bus, m)
	contactService := service.NewContactService(contactRepo, bus, m)

	h := handlers.New(authService, bookingService, chatService, paymentService, contactService, cat, limiter, cfg)
	router := h.Router(handlers.RouterOptions{
		Metrics:     m,
		Idempotency: idempotencyRepo,
		Resolvers: []identity.Resolver{
			identity.SessionResolver{Secret: cfg.Auth.JWTSecret, Revocations: sessionRepo},
			identity.GuestCookieResolver{},
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting hotel service", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if rateLimits != nil {
		g.Go(func() error {
			cleanupRateLimits(gctx, rateLimits, cfg.RateLimit.Window)
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down hotel service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Hotel service error", "error", err)
		os.Exit(1)
	}
}

// cleanupRateLimits drops expired windows until ctx is cancelled.
func cleanupRateLimits(ctx context.Context, repo repository.RateLimitRepository, window time.Duration) {
	if window < time.Minute {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("Rate limit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("Rate limit windows removed", "count", n)
			}
		}
	}
}
