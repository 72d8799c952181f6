package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/recircular-api/config"
	"github.com/ErlanBelekov/recircular-api/internal/email"
	"github.com/ErlanBelekov/recircular-api/internal/health"
	"github.com/ErlanBelekov/recircular-api/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/recircular-api/internal/log"
	"github.com/ErlanBelekov/recircular-api/internal/metrics"
	"github.com/ErlanBelekov/recircular-api/internal/notify"
	"github.com/ErlanBelekov/recircular-api/internal/sweeper"
	httptransport "github.com/ErlanBelekov/recircular-api/internal/transport/http"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/recircular-api/internal/usecase"
	"github.com/ErlanBelekov/recircular-api/migrations"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL, migrations.FS); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sender, err := email.NewSender(email.Options{
		Env:      cfg.Env,
		Disabled: cfg.EmailDisabled,
		APIKey:   cfg.ResendAPIKey,
		From:     cfg.EmailFrom,
	}, logger)
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("email: %v", err)
	}
	notifier := notify.NewNotifier(sender, logger, cfg.NotifyConcurrency, cfg.NotifyTimeout)

	userRepo := postgres.NewUserRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)

	// Auth
	authUsecase := usecase.NewAuthUsecase(userRepo, notifier, usecase.AuthConfig{
		JWTSecret:        []byte(cfg.JWTSecret),
		JWTTTL:           cfg.JWTTTL,
		ActivationTTL:    cfg.ActivationTTL,
		BackendURL:       cfg.BackendURL,
		ExposeConfirmURL: cfg.Env != "production",
	})
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	// Offers
	offerUsecase := usecase.NewOfferUsecase(offerRepo)
	offerHandler := handler.NewOfferHandler(offerUsecase, logger)

	// Requests
	requestUsecase := usecase.NewRequestUsecase(offerRepo, requestRepo, userRepo, notifier, cfg.FrontendURL, logger)
	requestHandler := handler.NewRequestHandler(requestUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{"postgres": pool}, logger, prometheus.DefaultRegisterer)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst)
	sweep, err := sweeper.New(userRepo, authLimiter, cfg.SweepSchedule, logger)
	if err != nil {
		stop()
		pool.Close()
		log.Fatalf("sweeper: %v", err)
	}
	go sweep.Start(ctx)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Auth:    authHandler,
			Offer:   offerHandler,
			Request: requestHandler,
			Health:  handler.NewHealthHandler(checker),
		}, httptransport.RouterConfig{
			JWTSecret:      []byte(cfg.JWTSecret),
			AllowedOrigins: cfg.AllowedOrigins(),
			HSTS:           cfg.Env != "local",
			AuthLimiter:    authLimiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	// Requests are drained; give queued emails the rest of the budget.
	if err := notifier.Wait(shutdownCtx); err != nil {
		logger.Warn("notifications still in flight at shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
