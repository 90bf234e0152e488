package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hostbay/sitehost-api/config"
	authHandler "github.com/hostbay/sitehost-api/internal/handler/auth"
	siteHandler "github.com/hostbay/sitehost-api/internal/handler/site"
	subscriptionHandler "github.com/hostbay/sitehost-api/internal/handler/subscription"
	"github.com/hostbay/sitehost-api/internal/middleware"
	"github.com/hostbay/sitehost-api/internal/ratelimit"
	"github.com/hostbay/sitehost-api/internal/repository/postgres"
	"github.com/hostbay/sitehost-api/internal/router"
	"github.com/hostbay/sitehost-api/internal/service/access"
	authService "github.com/hostbay/sitehost-api/internal/service/auth"
	subscriptionService "github.com/hostbay/sitehost-api/internal/service/subscription"
	"github.com/hostbay/sitehost-api/pkg/auth"
	"github.com/hostbay/sitehost-api/pkg/metrics"
	"github.com/hostbay/sitehost-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("sitehost")

	// Repositories
	base := postgres.NewBaseRepository(db)
	ownerRepo := postgres.NewOwnerRepository(base)
	siteRepo := postgres.NewSiteRepository(base)
	subRepo := postgres.NewSubscriptionRepository(base)
	reqRepo := postgres.NewSubscriptionRequestRepository(base)

	// Rate limiting. The memory store is per-process; each instance
	// enforces its own limit. Configure the redis store when running
	// more than one replica.
	authStore, err := newRateLimitStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rate limit store")
	}
	authLimiter := ratelimit.NewLimiter(ratelimit.Config{
		Scope:         "auth",
		Limit:         cfg.RateLimit.AuthLimit,
		Window:        cfg.RateLimit.AuthWindow,
		SweepInterval: cfg.RateLimit.SweepInterval,
	}, authStore, log.Logger, m)
	defer authLimiter.Stop()

	guard := ratelimit.NewAttemptGuard(ratelimit.GuardConfig{
		MaxFailures:   cfg.RateLimit.LockoutMaxFailures,
		Window:        cfg.RateLimit.LockoutWindow,
		SweepInterval: cfg.RateLimit.SweepInterval,
	}, log.Logger, m)
	defer guard.Stop()

	// Services
	authSvc, err := authService.NewService(ownerRepo, authLimiter, guard, log.Logger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth service")
	}
	lifecycleSvc := subscriptionService.NewService(subRepo, reqRepo, siteRepo, log.Logger, m)
	resolver := access.NewResolver(siteRepo, ownerRepo, lifecycleSvc, log.Logger, m)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	// Router
	r := router.NewRouter(
		authHandler.NewHandler(authSvc, jwtSvc),
		siteHandler.NewHandler(resolver),
		subscriptionHandler.NewHandler(lifecycleSvc, authMiddleware),
		router.Config{
			RateLimit:      rate.Limit(float64(cfg.RateLimit.APILimit) / cfg.RateLimit.APIWindow.Seconds()),
			RateBurst:      cfg.RateLimit.APILimit,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "sitehost",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func newRateLimitStore(cfg *config.Config) (ratelimit.Store, error) {
	if cfg.RateLimit.Store != "redis" {
		return ratelimit.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return ratelimit.NewRedisStore(client, "sitehost:ratelimit"), nil
}
