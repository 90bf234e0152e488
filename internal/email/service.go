package email

import (
	"context"
)

// Service dispatches out-of-band mail. The gating engine only ever
// hands over plain tuples; templating stays with the implementation.
type Service interface {
	// SendExpiryWarning tells the owner their subscription ends in
	// daysLeft days. Delivery is at-least-once; callers that need
	// exactly-once must deduplicate downstream.
	SendExpiryWarning(ctx context.Context, recipientEmail, siteName string, daysLeft int) error
}
