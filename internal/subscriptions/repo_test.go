package subscriptions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

func setupSubscriptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  plan_type TEXT NOT NULL,
  status TEXT NOT NULL,
  current_period_start DATETIME NOT NULL,
  current_period_end DATETIME NOT NULL,
  stripe_customer_id TEXT,
  stripe_subscription_id TEXT,
  cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
  promo_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func strPtr(v string) *string { return &v }

func newSubscription(userID uuid.UUID, plan enums.PlanType, status enums.SubscriptionStatus, start, end time.Time) *models.Subscription {
	return &models.Subscription{
		UserID:             userID,
		PlanType:           plan,
		Status:             status,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	}
}

func TestUpsertByUserKeepsOneRowPerUser(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := newSubscription(userID, enums.PlanTypeMonthly, enums.SubscriptionStatusActive, start, start.AddDate(0, 1, 0))
	first.StripeSubscriptionID = strPtr("sub_1")
	require.NoError(t, repo.UpsertByUser(ctx, first))

	second := newSubscription(userID, enums.PlanTypeLifetime, enums.SubscriptionStatusActive, start, start.AddDate(100, 0, 0))
	second.StripeSubscriptionID = strPtr("one_time_1772359200")
	second.PromoCode = strPtr("SAVE20")
	require.NoError(t, repo.UpsertByUser(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.PlanTypeLifetime, stored.PlanType)
	assert.Equal(t, "one_time_1772359200", *stored.StripeSubscriptionID)
	assert.Equal(t, "SAVE20", *stored.PromoCode)
	assert.Equal(t, first.ID, stored.ID, "row identity survives the upsert")
}

func TestUpsertByUserReadsBackStoredID(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := newSubscription(userID, enums.PlanTypeMonthly, enums.SubscriptionStatusActive, start, start.AddDate(0, 1, 0))
	require.NoError(t, repo.UpsertByUser(ctx, first))

	second := newSubscription(userID, enums.PlanTypeLifetime, enums.SubscriptionStatusActive, start, start.AddDate(100, 0, 0))
	second.ID = uuid.New()
	require.NoError(t, repo.UpsertByUser(ctx, second))

	assert.Equal(t, first.ID, second.ID, "caller sees the id of the row that was updated")
}

func TestInsertIfAbsentDoesNotOverwrite(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now().UTC()

	created, err := repo.InsertIfAbsent(ctx, newSubscription(userID, enums.PlanTypeFreeTrial, enums.SubscriptionStatusTrialing, now, now.AddDate(0, 0, 3)))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertIfAbsent(ctx, newSubscription(userID, enums.PlanTypeFreeTrial, enums.SubscriptionStatusTrialing, now, now.AddDate(0, 0, 30)))
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.WithinDuration(t, now.AddDate(0, 0, 3), stored.CurrentPeriodEnd, time.Second)
}

func TestApplyStripeUpdate(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := newSubscription(userID, enums.PlanTypeMonthly, enums.SubscriptionStatusActive, start, start.AddDate(0, 1, 0))
	sub.StripeSubscriptionID = strPtr("sub_live")
	require.NoError(t, repo.UpsertByUser(ctx, sub))

	status := enums.SubscriptionStatusCancelled
	end := start.AddDate(0, 2, 0)
	cancel := true
	found, err := repo.ApplyStripeUpdate(ctx, "sub_live", StripeUpdate{Status: &status, CurrentPeriodEnd: &end, CancelAtPeriodEnd: &cancel})
	require.NoError(t, err)
	assert.True(t, found)

	stored, err := repo.FindByStripeSubscriptionID(ctx, "sub_live")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.SubscriptionStatusCancelled, stored.Status)
	assert.True(t, stored.CancelAtPeriodEnd)
	assert.True(t, end.Equal(stored.CurrentPeriodEnd.UTC()))

	found, err = repo.ApplyStripeUpdate(ctx, "sub_missing", StripeUpdate{Status: &status})
	require.NoError(t, err)
	assert.False(t, found)

	missing, err := repo.FindByStripeSubscriptionID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExpireLapsedSkipsLifetimeAndFutureRows(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	lapsedMonthly := uuid.New()
	lapsedTrial := uuid.New()
	lifetime := uuid.New()
	current := uuid.New()
	cancelled := uuid.New()

	require.NoError(t, repo.UpsertByUser(ctx, newSubscription(lapsedMonthly, enums.PlanTypeMonthly, enums.SubscriptionStatusActive, past.AddDate(0, -1, 0), past)))
	require.NoError(t, repo.UpsertByUser(ctx, newSubscription(lapsedTrial, enums.PlanTypeFreeTrial, enums.SubscriptionStatusTrialing, past.AddDate(0, 0, -3), past)))
	require.NoError(t, repo.UpsertByUser(ctx, newSubscription(lifetime, enums.PlanTypeLifetime, enums.SubscriptionStatusActive, past, past)))
	require.NoError(t, repo.UpsertByUser(ctx, newSubscription(current, enums.PlanTypeMonthly, enums.SubscriptionStatusActive, now, now.AddDate(0, 1, 0))))
	require.NoError(t, repo.UpsertByUser(ctx, newSubscription(cancelled, enums.PlanTypeMonthly, enums.SubscriptionStatusCancelled, past.AddDate(0, -1, 0), past)))

	var affected int64
	for _, plan := range enums.PlanTypes() {
		n, err := repo.ExpireLapsed(ctx, plan, now)
		require.NoError(t, err)
		affected += n
	}
	assert.Equal(t, int64(2), affected)

	expectations := map[uuid.UUID]enums.SubscriptionStatus{
		lapsedMonthly: enums.SubscriptionStatusExpired,
		lapsedTrial:   enums.SubscriptionStatusExpired,
		lifetime:      enums.SubscriptionStatusActive,
		current:       enums.SubscriptionStatusActive,
		cancelled:     enums.SubscriptionStatusCancelled,
	}
	for userID, want := range expectations {
		stored, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, want, stored.Status, "user %s", userID)
	}
}
