package controllers

import (
	"strings"

	"github.com/ToolDockHQ/ToolDock/internal/pkg/billing"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/database"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/env"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82/webhook"
)

var validate = validator.New()

func billingService() *billing.Service {
	client := billing.NewStripeClient(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return billing.NewServiceFromDB(database.GetDB(), client)
}

// HandleStripeWebhook receives signed Stripe events. Signature
// verification happens before any state mutation; a verified event goes
// through the idempotency ledger and the reconciler. A handler failure
// answers 5xx so Stripe retries with the same event ID.
func HandleStripeWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if strings.TrimSpace(secret) == "" {
		log.Error("[Billing] STRIPE_WEBHOOK_SECRET is not configured, rejecting webhook")
		return c.Status(fiber.StatusBadRequest).SendString("webhook secret not configured")
	}

	sigHeader := c.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing Stripe signature")
	}

	event, err := webhook.ConstructEventWithOptions(c.Body(), sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid Stripe signature")
	}

	if err := billingService().ProcessEvent(c.UserContext(), event.ID, string(event.Type), event.Data.Raw); err != nil {
		log.Errorf("[Billing] webhook %s (%s) failed: %v", event.ID, event.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}

type startCheckoutRequest struct {
	OrganizationID uint   `json:"organization_id" validate:"required"`
	PriceID        string `json:"price_id" validate:"required"`
	SuccessURL     string `json:"success_url" validate:"required,url"`
	CancelURL      string `json:"cancel_url" validate:"required,url"`
}

// HandleStartCheckout opens a Stripe checkout session for a catalog price.
func HandleStartCheckout(c *fiber.Ctx) error {
	var req startCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	url, err := billingService().StartCheckout(c.UserContext(), req.OrganizationID, req.PriceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		log.Errorf("[Billing] checkout for org %d failed: %v", req.OrganizationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout failed"})
	}
	return c.JSON(fiber.Map{"url": url})
}

type scheduleChangeRequest struct {
	OrganizationID uint  `json:"organization_id" validate:"required"`
	TargetPlanID   *uint `json:"target_plan_id"`
	TargetBundleID *uint `json:"target_bundle_id"`
}

// HandleScheduleChange records a pending plan or bundle change on the
// organization's current subscription.
func HandleScheduleChange(c *fiber.Ctx) error {
	var req scheduleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := billingService().ScheduleChange(c.UserContext(), req.OrganizationID, req.TargetPlanID, req.TargetBundleID); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"scheduled": true})
}

// HandleAdminSyncSubscription re-fetches a subscription from Stripe and
// reconciles it. Unlike webhook handling, failures surface as HTTP errors.
func HandleAdminSyncSubscription(c *fiber.Ctx) error {
	stripeSubID := strings.TrimSpace(c.Params("subscriptionID"))
	if stripeSubID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subscription id is required"})
	}

	if err := billingService().ResyncSubscription(c.UserContext(), stripeSubID); err != nil {
		log.Errorf("[Billing] manual sync of %s failed: %v", stripeSubID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"synced": true})
}
