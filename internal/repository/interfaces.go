package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/model"
)

// Sentinel errors surfaced by repository implementations. Services map
// them onto the user-facing error taxonomy.
var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyResolved = errors.New("request already resolved")
	ErrConflict        = errors.New("concurrent modification conflict")
	// ErrPartialRenewal signals that a renewal request was marked
	// approved but the subscription replacement did not complete. The
	// transactional postgres implementation never produces it; stores
	// without multi-write atomicity must report it rather than swallow
	// the inconsistency.
	ErrPartialRenewal = errors.New("renewal partially applied")
)

// OwnerRepository is the identity store. Read-only to the gating engine.
type OwnerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Owner, error)
	GetByEmail(ctx context.Context, email string) (*model.Owner, error)
}

// SiteRepository is the tenant store. Read-only to the gating engine.
type SiteRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.Site, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Site, error)
}

// SubscriptionRepository owns the subscription records. All writes go
// through the lifecycle service, never through handlers directly.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	GetActiveBySite(ctx context.Context, siteID uuid.UUID) (*model.Subscription, error)
	// GetLatestBySite returns the subscription with the most recent end
	// date regardless of status.
	GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*model.Subscription, error)
	// MarkExpired flips an active subscription to expired. It reports
	// false without error when the row was no longer active, so a
	// concurrent flip is not treated as a failure.
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// ListExpiringBetween returns active subscriptions whose end date
	// falls in [from, to).
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error)
	// Renew resolves an approved request and replaces the site's active
	// subscription in a single transaction. expectedActiveID is the
	// active subscription observed before approval (nil when none); a
	// mismatch inside the transaction returns ErrConflict so concurrent
	// approvals for the same site cannot both succeed.
	Renew(ctx context.Context, request *model.SubscriptionRequest, approverID uuid.UUID, now time.Time, sub *model.Subscription, expectedActiveID *uuid.UUID) error
}

// SubscriptionRequestRepository stores owner-submitted renewal requests.
type SubscriptionRequestRepository interface {
	Create(ctx context.Context, req *model.SubscriptionRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.SubscriptionRequest, error)
	ListByStatus(ctx context.Context, status string) ([]*model.SubscriptionRequest, error)
	// MarkRejected resolves a pending request terminally. Returns
	// ErrAlreadyResolved when the request left pending state earlier.
	MarkRejected(ctx context.Context, id uuid.UUID, reason string, now time.Time) error
}
