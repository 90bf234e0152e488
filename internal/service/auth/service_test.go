package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/ratelimit"
	"github.com/hostbay/sitehost-api/internal/repository"
	"github.com/hostbay/sitehost-api/internal/repository/memory"
	apperrors "github.com/hostbay/sitehost-api/pkg/errors"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	guard   *ratelimit.AttemptGuard
	limiter *ratelimit.Limiter
	repo    *countingOwnerRepo
}

type countingOwnerRepo struct {
	repository.OwnerRepository
	lookups int
	fail    bool
}

func (r *countingOwnerRepo) GetByEmail(ctx context.Context, email string) (*model.Owner, error) {
	r.lookups++
	if r.fail {
		return nil, errors.New("storage unavailable")
	}
	return r.OwnerRepository.GetByEmail(ctx, email)
}

func newFixture(t *testing.T, authLimit int) *fixture {
	t.Helper()

	store := memory.NewStore()
	repo := &countingOwnerRepo{OwnerRepository: store.Owners()}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Scope:  "auth",
		Limit:  authLimit,
		Window: 15 * time.Minute,
	}, ratelimit.NewMemoryStore(), zerolog.Nop(), nil)
	t.Cleanup(limiter.Stop)

	guard := ratelimit.NewAttemptGuard(ratelimit.GuardConfig{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}, zerolog.Nop(), nil)
	t.Cleanup(guard.Stop)

	svc, err := NewService(repo, limiter, guard, zerolog.Nop(), nil)
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, guard: guard, limiter: limiter, repo: repo}
}

func (f *fixture) seedOwner(t *testing.T, email, password string) *model.Owner {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	owner := &model.Owner{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test Owner",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	f.store.AddOwner(owner)
	return owner
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newFixture(t, 5)
	owner := f.seedOwner(t, "owner@example.com", "correct-horse")

	identity, err := f.svc.Authenticate(context.Background(), "owner@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, identity.ID)
	assert.Equal(t, owner.Email, identity.Email)
	assert.Equal(t, owner.Name, identity.Name)
}

func TestAuthenticateNormalizesEmail(t *testing.T) {
	f := newFixture(t, 5)
	f.seedOwner(t, "owner@example.com", "correct-horse")

	_, err := f.svc.Authenticate(context.Background(), "  Owner@EXAMPLE.com ", "correct-horse")
	require.NoError(t, err)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	f := newFixture(t, 5)
	f.seedOwner(t, "owner@example.com", "correct-horse")

	_, err := f.svc.Authenticate(context.Background(), "owner@example.com", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	assert.Equal(t, 1, f.guard.Failures("owner@example.com"))
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.svc.Authenticate(context.Background(), "nobody@example.com", "whatever-pass")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials),
		"unknown account is indistinguishable from wrong password")
	assert.Equal(t, 1, f.guard.Failures("nobody@example.com"))
}

func TestAuthenticateSuccessClearsFailures(t *testing.T) {
	f := newFixture(t, 10)
	f.seedOwner(t, "owner@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Authenticate(ctx, "owner@example.com", "wrong-password")
		require.Error(t, err)
	}
	assert.Equal(t, 3, f.guard.Failures("owner@example.com"))

	_, err := f.svc.Authenticate(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Zero(t, f.guard.Failures("owner@example.com"))
}

func TestAuthenticateInvalidFormat(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "valid-password"},
		{"malformed email", "not-an-email", "valid-password"},
		{"short password", "owner@example.com", "abc"},
		{"long password", "owner@example.com", string(make([]byte, 101))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Authenticate(ctx, tt.email, tt.password)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFormat))
		})
	}

	// Format rejections happen before the limiter and leave no state
	// behind; even with a limit of 1 a valid attempt still goes through.
	assert.Zero(t, f.repo.lookups)
	f.seedOwner(t, "owner@example.com", "correct-horse")
	_, err := f.svc.Authenticate(ctx, "owner@example.com", "correct-horse")
	require.NoError(t, err)
}

func TestAuthenticateRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	f.seedOwner(t, "owner@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Authenticate(ctx, "owner@example.com", "wrong-password")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	}

	lookupsBefore := f.repo.lookups
	_, err := f.svc.Authenticate(ctx, "owner@example.com", "correct-horse")
	assert.True(t, apperrors.Is(err, apperrors.ErrRateLimited))
	assert.Equal(t, lookupsBefore, f.repo.lookups, "denial must not touch storage")
}

func TestAuthenticateLockout(t *testing.T) {
	f := newFixture(t, 100)
	f.seedOwner(t, "owner@example.com", "correct-horse")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Authenticate(ctx, "owner@example.com", "wrong-password")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	}

	lookupsBefore := f.repo.lookups
	_, err := f.svc.Authenticate(ctx, "owner@example.com", "correct-horse")
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))
	assert.Equal(t, lookupsBefore, f.repo.lookups, "lockout must not touch storage")
}

func TestAuthenticateStorageError(t *testing.T) {
	f := newFixture(t, 5)
	f.repo.fail = true

	_, err := f.svc.Authenticate(context.Background(), "owner@example.com", "correct-horse")
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal),
		"storage faults are hard failures, never a silent authentication")
	assert.Zero(t, f.guard.Failures("owner@example.com"),
		"no failure is recorded when the lookup itself failed")
}

func TestAuthenticateTimingIndistinguishable(t *testing.T) {
	if testing.Short() {
		t.Skip("timing measurement")
	}

	f := newFixture(t, 100)

	// The stored hash must carry the same cost as the dummy hash for
	// the two paths to burn comparable time.
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcryptCost)
	require.NoError(t, err)
	f.store.AddOwner(&model.Owner{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	})

	ctx := context.Background()
	measure := func(email string) time.Duration {
		var total time.Duration
		const samples = 3
		for i := 0; i < samples; i++ {
			start := time.Now()
			_, err := f.svc.Authenticate(ctx, email, "wrong-password")
			total += time.Since(start)
			require.Error(t, err)
		}
		return total / samples
	}

	existing := measure("owner@example.com")
	missing := measure("ghost@example.com")

	ratio := float64(existing) / float64(missing)
	assert.Greater(t, ratio, 0.5, "existing-account path suspiciously fast")
	assert.Less(t, ratio, 2.0, "existing-account path suspiciously slow")
}
