package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/ratelimit"
	"github.com/hostbay/sitehost-api/internal/repository"
	apperrors "github.com/hostbay/sitehost-api/pkg/errors"
	"github.com/hostbay/sitehost-api/pkg/metrics"
	"github.com/hostbay/sitehost-api/pkg/security"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 100
	bcryptCost     = 12
)

// Service authenticates owner credentials. The rate limiter and the
// attempt guard are consulted before storage is touched, so they are
// the sole throttle on the lookup path.
type Service struct {
	ownerRepo repository.OwnerRepository
	limiter   *ratelimit.Limiter
	guard     *ratelimit.AttemptGuard
	hasher    security.PasswordHasher
	dummyHash string

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(ownerRepo repository.OwnerRepository, limiter *ratelimit.Limiter,
	guard *ratelimit.AttemptGuard, logger zerolog.Logger, m *metrics.Metrics) (*Service, error) {
	// Precomputed once so the unknown-account path pays the same bcrypt
	// cost as a real mismatch.
	dummy, err := security.DummyHash(bcryptCost)
	if err != nil {
		return nil, err
	}

	return &Service{
		ownerRepo: ownerRepo,
		limiter:   limiter,
		guard:     guard,
		hasher:    security.NewBcryptHasher(bcryptCost),
		dummyHash: dummy,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Authenticate validates the credential pair. Order matters: format
// rejection and throttling happen before any storage access and leave
// no side effects; failure counters move only after a real lookup.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateFormat(email, password); err != nil {
		s.countOutcome("invalid_format")
		return nil, err
	}

	result, err := s.limiter.Check(ctx, email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !result.Allowed {
		s.countOutcome("rate_limited")
		return nil, apperrors.RateLimited("too many login attempts, try again later")
	}

	if !s.guard.Permit(email) {
		s.countOutcome("locked")
		return nil, apperrors.Locked("account temporarily locked, try again later")
	}

	owner, err := s.ownerRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			// Storage faults are hard failures here; never fall back to
			// authenticating on error.
			return nil, apperrors.Internal(err)
		}

		// Burn the same bcrypt cost as the mismatch path so response
		// timing does not reveal whether the email is registered.
		_ = s.hasher.Compare(s.dummyHash, password)
		s.guard.RecordFailure(email)
		s.countOutcome("invalid_credentials")
		return nil, apperrors.InvalidCredentials()
	}

	if err := s.hasher.Compare(owner.PasswordHash, password); err != nil {
		s.guard.RecordFailure(email)
		s.countOutcome("invalid_credentials")
		return nil, apperrors.InvalidCredentials()
	}

	s.guard.RecordSuccess(email)
	s.countOutcome("success")
	s.logger.Info().
		Str("event", "login_success").
		Str("owner_id", owner.ID.String()).
		Msg("owner authenticated")

	return &model.Identity{
		ID:    owner.ID,
		Email: owner.Email,
		Name:  owner.Name,
	}, nil
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func validateFormat(email, password string) error {
	if email == "" {
		return apperrors.InvalidFormat("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.InvalidFormat("malformed email address")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return apperrors.InvalidFormat("password must be between 6 and 100 characters")
	}
	return nil
}
