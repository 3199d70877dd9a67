package billing

import (
	"strconv"
	"strings"
	"time"
)

// StripeSubscription is the subset of the provider subscription object the
// reconciler consumes. Stripe migrated the billing-period fields from the
// subscription root to the line items over API versions; both shapes are
// decoded and PeriodBounds picks in explicit fallback order.
type StripeSubscription struct {
	ID                   string                  `json:"id"`
	Customer             string                  `json:"customer"`
	Status               string                  `json:"status"`
	CancelAtPeriodEnd    bool                    `json:"cancel_at_period_end"`
	CurrentPeriodStart   int64                   `json:"current_period_start"`
	CurrentPeriodEnd     int64                   `json:"current_period_end"`
	TrialStart           int64                   `json:"trial_start"`
	TrialEnd             int64                   `json:"trial_end"`
	DefaultPaymentMethod string                  `json:"default_payment_method"`
	Items                StripeSubscriptionItems `json:"items"`
	Metadata             map[string]string       `json:"metadata"`
}

type StripeSubscriptionItems struct {
	Data []StripeSubscriptionItem `json:"data"`
}

type StripeSubscriptionItem struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Price              struct {
		ID string `json:"id"`
	} `json:"price"`
}

// OrganizationID extracts the owning organization from subscription
// metadata. Zero means the event cannot be attributed.
func (s *StripeSubscription) OrganizationID() uint {
	for _, key := range []string{"organization_id", "organizationId"} {
		raw, ok := s.Metadata[key]
		if !ok {
			continue
		}
		raw = strings.TrimPrefix(strings.TrimSpace(raw), "org-")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil && id > 0 {
			return uint(id)
		}
	}
	return 0
}

// PeriodBounds returns the billing period, preferring the root-level
// fields and falling back to the first line item.
func (s *StripeSubscription) PeriodBounds() (start, end *time.Time) {
	startUnix := s.CurrentPeriodStart
	endUnix := s.CurrentPeriodEnd
	if startUnix == 0 && endUnix == 0 && len(s.Items.Data) > 0 {
		startUnix = s.Items.Data[0].CurrentPeriodStart
		endUnix = s.Items.Data[0].CurrentPeriodEnd
	}
	return unixTime(startUnix), unixTime(endUnix)
}

// TrialBounds returns the trial window, when any.
func (s *StripeSubscription) TrialBounds() (start, end *time.Time) {
	return unixTime(s.TrialStart), unixTime(s.TrialEnd)
}

// PriceIDs returns the line-item price IDs in order.
func (s *StripeSubscription) PriceIDs() []string {
	ids := make([]string, 0, len(s.Items.Data))
	for _, item := range s.Items.Data {
		if id := strings.TrimSpace(item.Price.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// StripeInvoice is the subset of the provider invoice object consumed by
// the payment success/failure handlers.
type StripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionID normalizes the invoice → subscription reference. Newer
// API versions carry it under parent.subscription_details, older ones at
// the root.
func (i *StripeInvoice) SubscriptionID() string {
	if id := strings.TrimSpace(i.Subscription); id != "" {
		return id
	}
	return strings.TrimSpace(i.Parent.SubscriptionDetails.Subscription)
}

// StripeCheckoutSession is the subset of checkout.session.completed the
// billing core consumes.
type StripeCheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// OrganizationID extracts the owning organization from session metadata.
func (s *StripeCheckoutSession) OrganizationID() uint {
	sub := StripeSubscription{Metadata: s.Metadata}
	return sub.OrganizationID()
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
