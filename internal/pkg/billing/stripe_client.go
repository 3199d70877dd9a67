package billing

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"
)

// CheckoutParams describes a subscription-mode checkout session.
type CheckoutParams struct {
	CustomerID     string
	PriceID        string
	OrganizationID uint
	TrialDays      int
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// ProviderClient is the payment-provider surface the billing core
// consumes. The Stripe implementation is the only production one; tests
// inject fakes.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, name string, orgID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CancelSubscription(ctx context.Context, stripeSubscriptionID string, immediate bool) error
	GetSubscription(ctx context.Context, stripeSubscriptionID string) (*StripeSubscription, error)
	PaymentMethodFingerprint(ctx context.Context, paymentMethodID string) (string, error)
	CustomerDefaultPaymentMethod(ctx context.Context, customerID string) (string, error)
}

type stripeClient struct{}

// NewStripeClient sets the global Stripe API key and returns the
// production provider client.
func NewStripeClient(apiKey string) ProviderClient {
	stripe.Key = apiKey
	return &stripeClient{}
}

func (c *stripeClient) CreateCustomer(ctx context.Context, name string, orgID uint) (string, error) {
	_ = ctx
	params := &stripe.CustomerParams{
		Name: stripe.String(name),
	}
	params.AddMetadata("organization_id", fmt.Sprint(orgID))

	cus, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe customer create: %w", err)
	}
	return cus.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	_ = ctx
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(p.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"organization_id": fmt.Sprint(p.OrganizationID),
			},
		},
	}
	if p.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(p.TrialDays))
	}
	params.AddMetadata("organization_id", fmt.Sprint(p.OrganizationID))
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session create: %w", err)
	}
	return sess.URL, nil
}

func (c *stripeClient) CancelSubscription(ctx context.Context, stripeSubscriptionID string, immediate bool) error {
	_ = ctx
	if immediate {
		if _, err := subscription.Cancel(stripeSubscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
			return fmt.Errorf("stripe subscription cancel: %w", err)
		}
		return nil
	}
	if _, err := subscription.Update(stripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}); err != nil {
		return fmt.Errorf("stripe subscription cancel at period end: %w", err)
	}
	return nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, stripeSubscriptionID string) (*StripeSubscription, error) {
	_ = ctx
	sub, err := subscription.Get(stripeSubscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription get: %w", err)
	}
	return fromStripeSubscription(sub), nil
}

func (c *stripeClient) PaymentMethodFingerprint(ctx context.Context, paymentMethodID string) (string, error) {
	_ = ctx
	pm, err := paymentmethod.Get(paymentMethodID, nil)
	if err != nil {
		return "", fmt.Errorf("stripe payment method get: %w", err)
	}
	if pm.Card == nil {
		return "", nil
	}
	return pm.Card.Fingerprint, nil
}

func (c *stripeClient) CustomerDefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	_ = ctx
	cus, err := customer.Get(customerID, nil)
	if err != nil {
		return "", fmt.Errorf("stripe customer get: %w", err)
	}
	if cus.InvoiceSettings == nil || cus.InvoiceSettings.DefaultPaymentMethod == nil {
		return "", nil
	}
	return cus.InvoiceSettings.DefaultPaymentMethod.ID, nil
}

// fromStripeSubscription converts the SDK object into the reconciler's
// payload shape. Period bounds live on the items in this SDK version.
func fromStripeSubscription(sub *stripe.Subscription) *StripeSubscription {
	out := &StripeSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		TrialStart:        sub.TrialStart,
		TrialEnd:          sub.TrialEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		out.Customer = sub.Customer.ID
	}
	if sub.DefaultPaymentMethod != nil {
		out.DefaultPaymentMethod = sub.DefaultPaymentMethod.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			conv := StripeSubscriptionItem{
				CurrentPeriodStart: item.CurrentPeriodStart,
				CurrentPeriodEnd:   item.CurrentPeriodEnd,
			}
			if item.Price != nil {
				conv.Price.ID = item.Price.ID
			}
			out.Items.Data = append(out.Items.Data, conv)
		}
	}
	return out
}
