package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
	"github.com/hostbay/sitehost-api/internal/repository/memory"
	apperrors "github.com/hostbay/sitehost-api/pkg/errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type lifecycleFixture struct {
	svc     *Service
	store   *memory.Store
	subRepo *trackingSubRepo
	ownerID uuid.UUID
	siteID  uuid.UUID
}

// trackingSubRepo counts expiry flips and lets a test mutate the store
// between the service's active-subscription read and the renewal write.
type trackingSubRepo struct {
	repository.SubscriptionRepository
	markExpiredCalls int
	beforeRenew      func()
}

func (r *trackingSubRepo) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.markExpiredCalls++
	return r.SubscriptionRepository.MarkExpired(ctx, id, now)
}

func (r *trackingSubRepo) Renew(ctx context.Context, req *model.SubscriptionRequest, approverID uuid.UUID,
	now time.Time, sub *model.Subscription, expectedActiveID *uuid.UUID) error {
	if r.beforeRenew != nil {
		r.beforeRenew()
	}
	return r.SubscriptionRepository.Renew(ctx, req, approverID, now, sub, expectedActiveID)
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	store := memory.NewStore()
	subRepo := &trackingSubRepo{SubscriptionRepository: store.Subscriptions()}
	svc := NewService(subRepo, store.Requests(), store.Sites(), zerolog.Nop(), nil)

	f := &lifecycleFixture{
		svc:     svc,
		store:   store,
		subRepo: subRepo,
		ownerID: uuid.New(),
		siteID:  uuid.New(),
	}
	store.AddSite(&model.Site{
		Base:     model.Base{ID: f.siteID},
		OwnerID:  f.ownerID,
		Slug:     "acme",
		Name:     "Acme Co",
		IsActive: true,
	})
	return f
}

func (f *lifecycleFixture) seedSubscription(t *testing.T, status string, endDate time.Time) *model.Subscription {
	t.Helper()
	sub := &model.Subscription{
		OwnerID:   f.ownerID,
		SiteID:    f.siteID,
		Plan:      model.PlanTrial,
		Status:    status,
		StartDate: endDate.AddDate(0, 0, -TrialDays),
		EndDate:   endDate,
	}
	require.NoError(t, f.store.Subscriptions().Create(context.Background(), sub))
	return sub
}

func (f *lifecycleFixture) seedPendingRequest(t *testing.T, plan string, amount float64) *model.SubscriptionRequest {
	t.Helper()
	req := &model.SubscriptionRequest{
		OwnerID:       f.ownerID,
		SiteID:        f.siteID,
		Plan:          plan,
		Amount:        amount,
		PaymentMethod: "bank_transfer",
		ContactPhone:  "+15550100",
		Status:        model.RequestStatusPending,
		RequestDate:   now,
	}
	require.NoError(t, f.store.Requests().Create(context.Background(), req))
	return req
}

func TestCreateTrial(t *testing.T) {
	f := newLifecycleFixture(t)

	sub, err := f.svc.CreateTrial(context.Background(), f.ownerID, f.siteID, now)
	require.NoError(t, err)

	assert.Equal(t, model.PlanTrial, sub.Plan)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, now, sub.StartDate)
	assert.Equal(t, now.Add(30*24*time.Hour), sub.EndDate)
	assert.Zero(t, sub.Amount)
	assert.False(t, sub.AutoRenew)

	status, err := f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
}

func TestCurrentStatusNeverSubscribed(t *testing.T) {
	f := newLifecycleFixture(t)

	status, err := f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateNeverSubscribed, status.State)
	assert.Nil(t, status.Subscription)
}

func TestCurrentStatusLazyExpiry(t *testing.T) {
	f := newLifecycleFixture(t)
	sub := f.seedSubscription(t, model.SubscriptionStatusActive, now.AddDate(0, 0, -1))

	status, err := f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateExpiredNoActive, status.State)
	require.NotNil(t, status.Subscription)
	assert.Equal(t, sub.ID, status.Subscription.ID)
	assert.Equal(t, model.SubscriptionStatusExpired, status.Subscription.Status,
		"observation flips the stored record")
	assert.Equal(t, 1, f.subRepo.markExpiredCalls)

	// A second observation finds nothing active and does not flip again.
	status, err = f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateExpiredNoActive, status.State)
	assert.Equal(t, 1, f.subRepo.markExpiredCalls)
}

func TestCurrentStatusEndDateNotYetPassed(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedSubscription(t, model.SubscriptionStatusActive, now)

	// EndDate equal to now is not expired; Before is strict.
	status, err := f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
	assert.Zero(t, f.subRepo.markExpiredCalls)
}

func TestSubmitRenewalRequest(t *testing.T) {
	f := newLifecycleFixture(t)

	req, err := f.svc.SubmitRenewalRequest(context.Background(), f.ownerID,
		model.PlanSemiAnnual, 120, "bank_transfer", "+15550100", now)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, f.siteID, req.SiteID, "site is derived from the owner")
	assert.Equal(t, model.PlanSemiAnnual, req.Plan)
	assert.Equal(t, float64(120), req.Amount)
	assert.Equal(t, now, req.RequestDate)
}

func TestSubmitRenewalRequestValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitRenewalRequest(ctx, f.ownerID, "lifetime", 120, "bank_transfer", "+15550100", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFormat))

	_, err = f.svc.SubmitRenewalRequest(ctx, f.ownerID, model.PlanMonthly, 0, "bank_transfer", "+15550100", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFormat))

	_, err = f.svc.SubmitRenewalRequest(ctx, uuid.New(), model.PlanMonthly, 20, "bank_transfer", "+15550100", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "owner without a site")
}

func TestApproveRenewalRequest(t *testing.T) {
	f := newLifecycleFixture(t)
	old := f.seedSubscription(t, model.SubscriptionStatusActive, now.AddDate(0, 0, 3))
	req := f.seedPendingRequest(t, model.PlanAnnual, 240)
	approver := uuid.New()

	sub, err := f.svc.ApproveRenewalRequest(context.Background(), req.ID, approver, now)
	require.NoError(t, err)

	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, model.PlanAnnual, sub.Plan)
	assert.Equal(t, now, sub.StartDate)
	assert.Equal(t, now.AddDate(0, 12, 0), sub.EndDate)
	assert.Equal(t, float64(240), sub.Amount)
	assert.True(t, sub.AutoRenew)

	assert.Equal(t, model.RequestStatusApproved, req.Status)
	require.NotNil(t, req.ApprovedBy)
	assert.Equal(t, approver, *req.ApprovedBy)
	require.NotNil(t, req.ApprovedDate)
	assert.Equal(t, now, *req.ApprovedDate)

	// Exactly one active subscription after approval; the old one is
	// cancelled, not expired.
	assert.Equal(t, model.SubscriptionStatusCancelled, old.Status)
	active, err := f.store.Subscriptions().GetActiveBySite(context.Background(), f.siteID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)
}

func TestApproveRenewalRequestNoPriorSubscription(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)

	sub, err := f.svc.ApproveRenewalRequest(context.Background(), req.ID, uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 1, 0), sub.EndDate)

	status, err := f.svc.CurrentStatus(context.Background(), f.siteID, now)
	require.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
}

func TestApproveRenewalRequestAlreadyResolved(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)
	ctx := context.Background()

	_, err := f.svc.ApproveRenewalRequest(ctx, req.ID, uuid.New(), now)
	require.NoError(t, err)
	firstApprover := *req.ApprovedBy
	firstDate := *req.ApprovedDate

	later := now.Add(time.Hour)
	_, err = f.svc.ApproveRenewalRequest(ctx, req.ID, uuid.New(), later)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyResolved))

	_, err = f.svc.RejectRenewalRequest(ctx, req.ID, "changed our mind", later)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyResolved))

	// Terminal fields survive the refused transitions untouched.
	assert.Equal(t, model.RequestStatusApproved, req.Status)
	assert.Equal(t, firstApprover, *req.ApprovedBy)
	assert.Equal(t, firstDate, *req.ApprovedDate)
	assert.Nil(t, req.RejectionReason)
}

func TestApproveRenewalRequestUnknown(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.ApproveRenewalRequest(context.Background(), uuid.New(), uuid.New(), now)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestApproveRenewalRequestConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedSubscription(t, model.SubscriptionStatusActive, now.AddDate(0, 0, 3))
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)

	// Another approval lands between this one's read of the active
	// subscription and its renewal write.
	f.subRepo.beforeRenew = func() {
		f.subRepo.beforeRenew = nil
		f.seedSubscription(t, model.SubscriptionStatusActive, now.AddDate(0, 6, 0))
	}

	_, err := f.svc.ApproveRenewalRequest(context.Background(), req.ID, uuid.New(), now)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, model.RequestStatusPending, req.Status, "conflict leaves the request pending")
}

func TestApproveRenewalRequestPartialFailure(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)
	f.store.FailRenewalInsert = true

	_, err := f.svc.ApproveRenewalRequest(context.Background(), req.ID, uuid.New(), now)
	assert.True(t, apperrors.Is(err, apperrors.ErrPartialRenewal))

	// The request resolved but no replacement subscription exists; this
	// is the inconsistency operators get alerted on.
	assert.Equal(t, model.RequestStatusApproved, req.Status)
	_, err = f.store.Subscriptions().GetActiveBySite(context.Background(), f.siteID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRejectRenewalRequest(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)

	rejected, err := f.svc.RejectRenewalRequest(context.Background(), req.ID, "payment not received", now)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "payment not received", *rejected.RejectionReason)

	_, err = f.svc.ApproveRenewalRequest(context.Background(), req.ID, uuid.New(), now)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyResolved), "rejected is terminal")
}

func TestRejectRenewalRequestRequiresReason(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seedPendingRequest(t, model.PlanMonthly, 20)

	_, err := f.svc.RejectRenewalRequest(context.Background(), req.ID, "", now)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFormat))
	assert.Equal(t, model.RequestStatusPending, req.Status)
}

func TestListRequests(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedPendingRequest(t, model.PlanMonthly, 20)
	second := f.seedPendingRequest(t, model.PlanAnnual, 240)
	_, err := f.svc.RejectRenewalRequest(context.Background(), second.ID, "duplicate", now)
	require.NoError(t, err)

	pending, err := f.svc.ListRequests(context.Background(), model.RequestStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	rejected, err := f.svc.ListRequests(context.Background(), model.RequestStatusRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
}
