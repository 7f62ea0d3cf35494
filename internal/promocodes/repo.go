package promocodes

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kineticlab/physio-academy-backend/internal/repo"
	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
)

// Repository handles promo code persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a promo code repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Normalize canonicalizes user input to the stored code format.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *repository) FindActiveByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return r.find(ctx, code, true)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return r.find(ctx, code, false)
}

func (r *repository) find(ctx context.Context, code string, activeOnly bool) (*models.PromoCode, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, nil
	}
	query := r.DB(ctx).Where("code = ?", normalized)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	return repo.FirstOrNil[models.PromoCode](query)
}

// IncrementUsage bumps current_uses by one unless max_uses is already reached.
// It reports whether a usage slot was consumed.
func (r *repository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return false, nil
	}
	return repo.Touched(r.DB(ctx).
		Model(&models.PromoCode{}).
		Where("code = ?", normalized).
		Where("max_uses IS NULL OR current_uses < max_uses").
		UpdateColumns(map[string]any{
			"current_uses": gorm.Expr("current_uses + 1"),
			"updated_at":   time.Now().UTC(),
		}))
}
