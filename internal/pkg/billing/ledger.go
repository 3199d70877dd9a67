package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// RecordOrSkip records an inbound event in the idempotency ledger and
// decides whether the caller should process it:
//
//   - unseen event: a pending row is inserted, process.
//   - already processed: skip, respond success without side effects.
//   - pending from another in-flight delivery: skip (best-effort guard,
//     not a lock).
//   - failed: reset to pending and process again (provider retry).
func (s *Service) RecordOrSkip(ctx context.Context, eventID, eventType string, payload []byte) (bool, *models.WebhookEvent, error) {
	_ = ctx
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, nil, errors.New("event id is required")
	}

	event := &models.WebhookEvent{
		StripeEventID: eventID,
		EventType:     strings.TrimSpace(eventType),
		Status:        models.WebhookStatusPending,
		PayloadJSON:   string(payload),
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(event)
	if err != nil {
		return false, nil, err
	}
	if created {
		return true, stored, nil
	}

	switch stored.Status {
	case models.WebhookStatusFailed:
		if err := s.repo.UpdateWebhookEventStatus(stored.ID, models.WebhookStatusPending, ""); err != nil {
			return false, nil, err
		}
		log.Infof("[Billing] retrying previously failed webhook event %s", eventID)
		return true, stored, nil
	case models.WebhookStatusPending:
		log.Infof("[Billing] webhook event %s already in flight, skipping", eventID)
		return false, stored, nil
	default:
		return false, stored, nil
	}
}

// MarkProcessed finalizes a ledger row after successful handling.
func (s *Service) MarkProcessed(ctx context.Context, eventRowID uint) error {
	_ = ctx
	return s.repo.UpdateWebhookEventStatus(eventRowID, models.WebhookStatusProcessed, "")
}

// MarkFailed records a handling failure so the provider retry is allowed
// to reprocess the event.
func (s *Service) MarkFailed(ctx context.Context, eventRowID uint, handlingErr error) error {
	_ = ctx
	msg := ""
	if handlingErr != nil {
		msg = handlingErr.Error()
	}
	return s.repo.UpdateWebhookEventStatus(eventRowID, models.WebhookStatusFailed, msg)
}
