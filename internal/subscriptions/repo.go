package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kineticlab/physio-academy-backend/internal/repo"
	"github.com/kineticlab/physio-academy-backend/pkg/db"
	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// Repository persists the per-user subscription row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	UpsertByUser(ctx context.Context, sub *models.Subscription) error
	InsertIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error)
	ApplyStripeUpdate(ctx context.Context, stripeSubscriptionID string, update StripeUpdate) (bool, error)
	ExpireLapsed(ctx context.Context, plan enums.PlanType, now time.Time) (int64, error)
}

// StripeUpdate carries the fields a subscription lifecycle event may change.
// Nil pointers leave the column untouched.
type StripeUpdate struct {
	Status            *enums.SubscriptionStatus
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd *bool
}

func (u StripeUpdate) columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.CurrentPeriodEnd != nil {
		cols["current_period_end"] = u.CurrentPeriodEnd.UTC()
	}
	if u.CancelAtPeriodEnd != nil {
		cols["cancel_at_period_end"] = *u.CancelAtPeriodEnd
	}
	return cols
}

type repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return r.first(r.DB(ctx).Where("user_id = ?", userID))
}

func (r *repository) FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, nil
	}
	return r.first(r.DB(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionID))
}

func (r *repository) first(query *gorm.DB) (*models.Subscription, error) {
	return repo.FirstOrNil[models.Subscription](query)
}

var upsertColumns = []string{
	"plan_type",
	"status",
	"current_period_start",
	"current_period_end",
	"stripe_customer_id",
	"stripe_subscription_id",
	"cancel_at_period_end",
	"promo_code",
	"updated_at",
}

// UpsertByUser writes sub in a single INSERT ... ON CONFLICT (user_id) statement
// so concurrent deliveries for the same user converge on one row. The stored
// row id is read back into sub.
func (r *repository) UpsertByUser(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return r.DB(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			},
			clause.Returning{Columns: []clause.Column{{Name: "id"}}},
		).
		Create(sub).Error
}

// InsertIfAbsent creates sub unless the user already owns a row.
func (r *repository) InsertIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	res := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(sub)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "subscriptions_user_id_key") {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ApplyStripeUpdate(ctx context.Context, stripeSubscriptionID string, update StripeUpdate) (bool, error) {
	if stripeSubscriptionID == "" {
		return false, nil
	}
	return repo.Touched(r.DB(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		UpdateColumns(update.columns(time.Now().UTC())))
}

// ExpireLapsed retires active or trialing rows of plan whose period ended
// before now. Lifetime rows never lapse.
func (r *repository) ExpireLapsed(ctx context.Context, plan enums.PlanType, now time.Time) (int64, error) {
	if plan == enums.PlanTypeLifetime {
		return 0, nil
	}
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("plan_type = ?", plan).
		Where("status IN ?", []enums.SubscriptionStatus{enums.SubscriptionStatusActive, enums.SubscriptionStatusTrialing}).
		Where("current_period_end < ?", now.UTC()).
		UpdateColumns(map[string]any{
			"status":     enums.SubscriptionStatusExpired,
			"updated_at": now.UTC(),
		})
	return res.RowsAffected, res.Error
}
