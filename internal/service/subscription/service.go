package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
	apperrors "github.com/hostbay/sitehost-api/pkg/errors"
	"github.com/hostbay/sitehost-api/pkg/metrics"
)

// TrialDays is the subscription window granted at site creation.
const TrialDays = 30

// State of a site's subscription history at a point in time.
type State int

const (
	// StateActive: a subscription is active and inside its window.
	StateActive State = iota
	// StateExpiredNoActive: history exists but nothing is active.
	StateExpiredNoActive
	// StateNeverSubscribed: the site has no subscription history at all.
	StateNeverSubscribed
)

// Status is the result of a CurrentStatus query. Subscription is the
// active record for StateActive, the most recent record for
// StateExpiredNoActive, nil for StateNeverSubscribed.
type Status struct {
	State        State
	Subscription *model.Subscription
}

// Service owns the Subscription and SubscriptionRequest lifecycles.
// Callers never write these records directly; the cancel-before-create
// discipline that keeps one active subscription per site lives here.
type Service struct {
	subRepo  repository.SubscriptionRepository
	reqRepo  repository.SubscriptionRequestRepository
	siteRepo repository.SiteRepository

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(subRepo repository.SubscriptionRepository, reqRepo repository.SubscriptionRequestRepository,
	siteRepo repository.SiteRepository, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		subRepo:  subRepo,
		reqRepo:  reqRepo,
		siteRepo: siteRepo,
		logger:   logger,
		metrics:  m,
	}
}

// CreateTrial opens the 30-day trial subscription. Called exactly once,
// when the site is created.
func (s *Service) CreateTrial(ctx context.Context, ownerID, siteID uuid.UUID, now time.Time) (*model.Subscription, error) {
	sub := &model.Subscription{
		OwnerID:   ownerID,
		SiteID:    siteID,
		Plan:      model.PlanTrial,
		Status:    model.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.Add(TrialDays * 24 * time.Hour),
		Amount:    0,
		AutoRenew: false,
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info().
		Str("site_id", siteID.String()).
		Time("end_date", sub.EndDate).
		Msg("trial subscription created")
	return sub, nil
}

// CurrentStatus reports the site's subscription state. An active
// subscription observed past its end date is flipped to expired here
// (lazy expiry), so correctness never depends on the notifier sweep
// having run.
func (s *Service) CurrentStatus(ctx context.Context, siteID uuid.UUID, now time.Time) (*Status, error) {
	active, err := s.subRepo.GetActiveBySite(ctx, siteID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	if active != nil {
		if !active.Expired(now) {
			return &Status{State: StateActive, Subscription: active}, nil
		}

		flipped, err := s.subRepo.MarkExpired(ctx, active.ID, now)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if flipped {
			if s.metrics != nil {
				s.metrics.SubscriptionsExpired.Inc()
			}
			s.logger.Info().
				Str("site_id", siteID.String()).
				Str("subscription_id", active.ID.String()).
				Time("end_date", active.EndDate).
				Msg("subscription expired on observation")
		}
	}

	latest, err := s.subRepo.GetLatestBySite(ctx, siteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Status{State: StateNeverSubscribed}, nil
		}
		return nil, apperrors.Internal(err)
	}

	return &Status{State: StateExpiredNoActive, Subscription: latest}, nil
}

// SubmitRenewalRequest records an owner's renewal. Payment confirmation
// is manual and out-of-band; nothing is validated against a processor
// here. The site is derived from the owner, never taken from the caller.
func (s *Service) SubmitRenewalRequest(ctx context.Context, ownerID uuid.UUID, plan string,
	amount float64, paymentMethod, contactPhone string, now time.Time) (*model.SubscriptionRequest, error) {
	if _, ok := model.PlanDuration(plan); !ok {
		return nil, apperrors.InvalidFormat("unknown subscription plan")
	}
	if amount <= 0 {
		return nil, apperrors.InvalidFormat("amount must be positive")
	}

	site, err := s.siteRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("site", err)
		}
		return nil, apperrors.Internal(err)
	}

	req := &model.SubscriptionRequest{
		OwnerID:       ownerID,
		SiteID:        site.ID,
		Plan:          plan,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		ContactPhone:  contactPhone,
		Status:        model.RequestStatusPending,
		RequestDate:   now,
	}

	if err := s.reqRepo.Create(ctx, req); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info().
		Str("site_id", site.ID.String()).
		Str("request_id", req.ID.String()).
		Str("plan", plan).
		Msg("renewal request submitted")
	return req, nil
}

// ApproveRenewalRequest resolves a pending request and replaces the
// site's active subscription with a paid one. Resolution and
// replacement are one atomic unit; a request that already left pending
// state fails with AlreadyResolved, and a concurrent approval for the
// same site fails with Conflict.
func (s *Service) ApproveRenewalRequest(ctx context.Context, requestID, approverID uuid.UUID, now time.Time) (*model.Subscription, error) {
	req, err := s.reqRepo.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("subscription request", err)
		}
		return nil, apperrors.Internal(err)
	}
	if req.Resolved() {
		return nil, apperrors.AlreadyResolved("subscription request")
	}

	months, ok := model.PlanDuration(req.Plan)
	if !ok {
		return nil, apperrors.InvalidFormat("unknown subscription plan")
	}

	var expectedActiveID *uuid.UUID
	active, err := s.subRepo.GetActiveBySite(ctx, req.SiteID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if active != nil {
		expectedActiveID = &active.ID
	}

	sub := &model.Subscription{
		OwnerID:   req.OwnerID,
		SiteID:    req.SiteID,
		Plan:      req.Plan,
		Status:    model.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, months, 0),
		Amount:    req.Amount,
		AutoRenew: true,
	}

	if err := s.subRepo.Renew(ctx, req, approverID, now, sub, expectedActiveID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.AlreadyResolved("subscription request")
		case errors.Is(err, repository.ErrConflict):
			if s.metrics != nil {
				s.metrics.RenewalConflicts.Inc()
			}
			s.logger.Warn().
				Str("event", "renewal_conflict").
				Str("request_id", requestID.String()).
				Str("site_id", req.SiteID.String()).
				Msg("concurrent renewal approval rejected")
			return nil, apperrors.Conflict("subscription changed during approval, retry", err)
		case errors.Is(err, repository.ErrPartialRenewal):
			// Request marked approved but the replacement write failed.
			// This is a consistency fault operators must act on, not a
			// retryable error.
			if s.metrics != nil {
				s.metrics.PartialRenewals.Inc()
			}
			s.logger.Error().
				Str("event", "partial_renewal_failure").
				Str("request_id", requestID.String()).
				Str("site_id", req.SiteID.String()).
				Err(err).
				Msg("renewal approved but subscription replacement failed")
			return nil, apperrors.PartialRenewal("renewal approved but subscription replacement failed", err)
		default:
			return nil, apperrors.Internal(err)
		}
	}

	if s.metrics != nil {
		s.metrics.RenewalsApproved.Inc()
	}
	s.logger.Info().
		Str("request_id", requestID.String()).
		Str("site_id", req.SiteID.String()).
		Str("plan", req.Plan).
		Time("end_date", sub.EndDate).
		Msg("renewal approved")
	return sub, nil
}

// RejectRenewalRequest resolves a pending request terminally with a
// reason. Both terminal states refuse further transitions.
func (s *Service) RejectRenewalRequest(ctx context.Context, requestID uuid.UUID, reason string, now time.Time) (*model.SubscriptionRequest, error) {
	if reason == "" {
		return nil, apperrors.InvalidFormat("rejection reason is required")
	}

	if err := s.reqRepo.MarkRejected(ctx, requestID, reason, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.AlreadyResolved("subscription request")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("subscription request", err)
		default:
			return nil, apperrors.Internal(err)
		}
	}

	req, err := s.reqRepo.Get(ctx, requestID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.RenewalsRejected.Inc()
	}
	s.logger.Info().
		Str("request_id", requestID.String()).
		Str("reason", reason).
		Msg("renewal rejected")
	return req, nil
}

// ListRequests returns renewal requests in the given state, newest first.
func (s *Service) ListRequests(ctx context.Context, status string) ([]*model.SubscriptionRequest, error) {
	reqs, err := s.reqRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return reqs, nil
}
