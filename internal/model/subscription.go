package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription plan constants
const (
	PlanTrial      = "trial"
	PlanMonthly    = "monthly"
	PlanSemiAnnual = "semi_annual"
	PlanAnnual     = "annual"
)

// Subscription status constants
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription request status constants
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// PlanDuration returns the length a paid plan adds to a subscription
// start, in months. Trial is handled separately (fixed 30 days).
func PlanDuration(plan string) (months int, ok bool) {
	switch plan {
	case PlanMonthly:
		return 1, true
	case PlanSemiAnnual:
		return 6, true
	case PlanAnnual:
		return 12, true
	}
	return 0, false
}

// Subscription is the durable record gating a site's public access.
// At most one subscription per site is active at any instant; the
// lifecycle service enforces this procedurally (cancel-before-create),
// so all writes must go through it.
type Subscription struct {
	Base
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	SiteID    uuid.UUID `json:"site_id" db:"site_id"`
	Plan      string    `json:"plan" db:"plan"`
	Status    string    `json:"status" db:"status"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Amount    float64   `json:"amount" db:"amount"`
	AutoRenew bool      `json:"auto_renew" db:"auto_renew"`
}

// Expired reports whether the subscription's window has passed.
func (s *Subscription) Expired(now time.Time) bool {
	return s.EndDate.Before(now)
}

// DaysRemaining returns whole days until expiry, never negative.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s.Expired(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}

// SubscriptionRequest is an owner-submitted renewal, resolved exactly
// once by an operator. Payment is confirmed manually out-of-band before
// approval; the engine never talks to a payment processor.
type SubscriptionRequest struct {
	Base
	OwnerID         uuid.UUID  `json:"owner_id" db:"owner_id"`
	SiteID          uuid.UUID  `json:"site_id" db:"site_id"`
	Plan            string     `json:"plan" db:"plan"`
	Amount          float64    `json:"amount" db:"amount"`
	PaymentMethod   string     `json:"payment_method" db:"payment_method"`
	ContactPhone    string     `json:"contact_phone" db:"contact_phone"`
	Status          string     `json:"status" db:"status"`
	RequestDate     time.Time  `json:"request_date" db:"request_date"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedDate    *time.Time `json:"approved_date,omitempty" db:"approved_date"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
}

// Resolved reports whether the request has reached a terminal state.
func (r *SubscriptionRequest) Resolved() bool {
	return r.Status != RequestStatusPending
}

// SubmitRenewalRequest represents the owner-facing renewal payload.
// The site is derived from the authenticated owner, never taken from
// the body.
type SubmitRenewalRequest struct {
	Plan          string  `json:"plan" binding:"required,plan"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	ContactPhone  string  `json:"contact_phone" binding:"required"`
}

// RejectRenewalRequest carries the operator's rejection reason.
type RejectRenewalRequest struct {
	Reason string `json:"reason" binding:"required"`
}
