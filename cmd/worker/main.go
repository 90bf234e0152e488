package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hostbay/sitehost-api/config"
	"github.com/hostbay/sitehost-api/internal/email"
	"github.com/hostbay/sitehost-api/internal/repository/postgres"
	"github.com/hostbay/sitehost-api/internal/service/notifier"
	"github.com/hostbay/sitehost-api/internal/worker"
	"github.com/hostbay/sitehost-api/pkg/metrics"
)

// The worker runs the expiry notification sweep on a fixed interval.
// Lazy expiry inside the access path keeps gating correct without it;
// this process only makes the outward warnings timely.
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

	m := metrics.NewMetrics("sitehost_worker")

	base := postgres.NewBaseRepository(db)
	ownerRepo := postgres.NewOwnerRepository(base)
	siteRepo := postgres.NewSiteRepository(base)
	subRepo := postgres.NewSubscriptionRepository(base)

	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log.Logger)

	notifierSvc := notifier.NewService(subRepo, ownerRepo, siteRepo, emailSvc, log.Logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	worker.NewExpirySweeper(notifierSvc, cfg.Notifier.Interval, log.Logger).Start(ctx)
}
