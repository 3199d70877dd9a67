package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pastDueSub(repo *fakeRepo, orgID uint, stripeID string, failedAgo time.Duration) *models.Subscription {
	failedAt := time.Now().UTC().Add(-failedAgo)
	return repo.addSub(models.Subscription{
		OrganizationID:       orgID,
		StripeSubscriptionID: stripeID,
		Status:               models.SubStatusPastDue,
		LastPaymentFailureAt: &failedAt,
	})
}

func TestSweepPastDueRespectsGracePeriod(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	sweeper := NewSweeper(repo, provider)

	recent := pastDueSub(repo, 1, "sub_recent", 2*24*time.Hour)
	expired := pastDueSub(repo, 2, "sub_expired", 4*24*time.Hour)

	canceled, err := sweeper.SweepPastDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, canceled)

	got, err := repo.SubscriptionByID(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCanceled, got.Status)
	assert.Equal(t, models.CancelReasonAutoCancelPastDue, got.CancellationReason)

	// Two days past_due is still inside the default three day grace.
	got, err = repo.SubscriptionByID(recent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusPastDue, got.Status)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActorSystemCron, repo.audits[0].ActorID)
	assert.Equal(t, "auto_cancel_past_due", repo.audits[0].Action)
}

func TestSweepPastDueConfiguredGrace(t *testing.T) {
	repo := newFakeRepo()
	repo.config[models.ConfigKeyGracePeriodDays] = 7
	provider := newFakeProvider()
	sweeper := NewSweeper(repo, provider)

	inside := pastDueSub(repo, 1, "sub_inside", 5*24*time.Hour)
	outside := pastDueSub(repo, 2, "sub_outside", 8*24*time.Hour)

	canceled, err := sweeper.SweepPastDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, canceled)

	got, _ := repo.SubscriptionByID(inside.ID)
	assert.Equal(t, models.SubStatusPastDue, got.Status)
	got, _ = repo.SubscriptionByID(outside.ID)
	assert.Equal(t, models.SubStatusCanceled, got.Status)
}

func TestSweepPastDueProviderFailureStillCancelsLocally(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	provider.cancelErr = errors.New("stripe is down")
	sweeper := NewSweeper(repo, provider)

	sub := pastDueSub(repo, 1, "sub_1", 5*24*time.Hour)

	canceled, err := sweeper.SweepPastDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, canceled)

	got, err := repo.SubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCanceled, got.Status)
	require.Len(t, provider.cancelCalls, 1)
}

func TestSweepPrunesOldProcessedEvents(t *testing.T) {
	repo := newFakeRepo()
	sweeper := NewSweeper(repo, newFakeProvider())

	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	fresh := time.Now().UTC().Add(-10 * 24 * time.Hour)
	repo.events["evt_old_done"] = &models.WebhookEvent{ID: 1, StripeEventID: "evt_old_done", Status: models.WebhookStatusProcessed, CreatedAt: old}
	repo.events["evt_old_failed"] = &models.WebhookEvent{ID: 2, StripeEventID: "evt_old_failed", Status: models.WebhookStatusFailed, CreatedAt: old}
	repo.events["evt_fresh"] = &models.WebhookEvent{ID: 3, StripeEventID: "evt_fresh", Status: models.WebhookStatusProcessed, CreatedAt: fresh}

	_, err := sweeper.SweepPastDue(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, repo.events, "evt_old_done")
	assert.Contains(t, repo.events, "evt_old_failed", "failed rows are kept for diagnosis")
	assert.Contains(t, repo.events, "evt_fresh")
}

func TestSweeperStartRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweeper(newFakeRepo(), newFakeProvider())
	assert.Error(t, sweeper.Start("not a cron spec"))

	require.NoError(t, sweeper.Start("0 3 * * *"))
	sweeper.Stop()
}

func TestSweepPruneDisabledByZeroRetention(t *testing.T) {
	repo := newFakeRepo()
	repo.config[models.ConfigKeyWebhookRetentionDays] = 0
	sweeper := NewSweeper(repo, newFakeProvider())

	old := time.Now().UTC().Add(-365 * 24 * time.Hour)
	repo.events["evt_ancient"] = &models.WebhookEvent{ID: 1, StripeEventID: "evt_ancient", Status: models.WebhookStatusProcessed, CreatedAt: old}

	_, err := sweeper.SweepPastDue(context.Background())
	require.NoError(t, err)
	assert.Contains(t, repo.events, "evt_ancient")
}
