package verification

import (
	"time"

	"github.com/hostbay/sitehost-api/internal/model"
)

// GracePeriodDays is how long an unverified owner's site stays servable
// after registration.
const GracePeriodDays = 7

// DaysSinceRegistration returns whole elapsed days since the owner
// registered.
func DaysSinceRegistration(owner *model.Owner, now time.Time) int {
	return int(now.Sub(owner.CreatedAt).Hours() / 24)
}

// Blocked reports whether the owner's grace period has run out without
// both contact channels being verified. The boundary is inclusive: an
// owner is blocked on day 7 exactly.
func Blocked(owner *model.Owner, now time.Time) bool {
	if owner.Verified() {
		return false
	}
	return DaysSinceRegistration(owner, now) >= GracePeriodDays
}

// DaysRemaining returns how many grace days are left, never negative.
// The dashboard shows this as a verification countdown.
func DaysRemaining(owner *model.Owner, now time.Time) int {
	remaining := GracePeriodDays - DaysSinceRegistration(owner, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
