package notifier

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/internal/email"
	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
	"github.com/hostbay/sitehost-api/pkg/metrics"
)

// Notification windows: subscriptions ending within 3 days and within
// the following 4 days get a warning on each sweep.
const (
	nearWindow = 3 * 24 * time.Hour
	farWindow  = 7 * 24 * time.Hour
)

// Service sweeps for subscriptions nearing expiry and hands warning
// tuples to the mail sender. It does not deduplicate across sweeps;
// exactly-once delivery is the sender's problem if it matters.
type Service struct {
	subRepo   repository.SubscriptionRepository
	ownerRepo repository.OwnerRepository
	siteRepo  repository.SiteRepository
	emailSvc  email.Service

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(subRepo repository.SubscriptionRepository, ownerRepo repository.OwnerRepository,
	siteRepo repository.SiteRepository, emailSvc email.Service, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		subRepo:   subRepo,
		ownerRepo: ownerRepo,
		siteRepo:  siteRepo,
		emailSvc:  emailSvc,
		logger:    logger,
		metrics:   m,
	}
}

// Run performs one sweep over both warning windows. A failed send for
// one subscription never aborts the rest of the sweep.
func (s *Service) Run(ctx context.Context, now time.Time) error {
	windows := []struct {
		from time.Time
		to   time.Time
	}{
		{now, now.Add(nearWindow)},
		{now.Add(nearWindow), now.Add(farWindow)},
	}

	for _, w := range windows {
		subs, err := s.subRepo.ListExpiringBetween(ctx, w.from, w.to)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			s.notify(ctx, sub, now)
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, sub *model.Subscription, now time.Time) {
	owner, err := s.ownerRepo.Get(ctx, sub.OwnerID)
	if err != nil {
		s.logger.Error().
			Str("subscription_id", sub.ID.String()).
			Err(err).
			Msg("owner lookup failed during expiry sweep")
		return
	}

	site, err := s.siteRepo.GetByOwner(ctx, sub.OwnerID)
	if err != nil {
		s.logger.Error().
			Str("subscription_id", sub.ID.String()).
			Err(err).
			Msg("site lookup failed during expiry sweep")
		return
	}

	daysLeft := sub.DaysRemaining(now)
	if err := s.emailSvc.SendExpiryWarning(ctx, owner.Email, site.Name, daysLeft); err != nil {
		if s.metrics != nil {
			s.metrics.ExpiryWarningsFailed.Inc()
		}
		s.logger.Error().
			Str("subscription_id", sub.ID.String()).
			Str("recipient", owner.Email).
			Err(err).
			Msg("expiry warning delivery failed")
		return
	}

	if s.metrics != nil {
		s.metrics.ExpiryWarningsSent.Inc()
	}
	s.logger.Info().
		Str("subscription_id", sub.ID.String()).
		Str("site_id", sub.SiteID.String()).
		Int("days_left", daysLeft).
		Msg("expiry warning dispatched")
}
