package billing

import (
	"strings"

	"github.com/ToolDockHQ/ToolDock/app/models"
)

// MapStripeSubscriptionStatus translates a provider status string to the
// local subscription status. Unrecognized strings map to incomplete so a
// provider-side schema addition never fails event handling.
func MapStripeSubscriptionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return models.SubStatusActive
	case "past_due":
		return models.SubStatusPastDue
	case "canceled":
		return models.SubStatusCanceled
	case "trialing":
		return models.SubStatusTrialing
	case "incomplete":
		return models.SubStatusIncomplete
	case "incomplete_expired":
		return models.SubStatusIncompleteExpired
	case "unpaid":
		return models.SubStatusUnpaid
	case "paused":
		return models.SubStatusPaused
	default:
		return models.SubStatusIncomplete
	}
}
