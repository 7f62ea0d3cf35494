package promocodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

func setupPromoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  applicable_plans TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  current_uses INTEGER NOT NULL DEFAULT 0,
  max_uses INTEGER,
  valid_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedPromo(t *testing.T, db *gorm.DB, code string, active bool, maxUses *int, uses int) {
	t.Helper()
	promo := &models.PromoCode{
		ID:              uuid.New(),
		Code:            code,
		DiscountType:    enums.DiscountTypePercentage,
		DiscountValue:   decimal.NewFromInt(20),
		ApplicablePlans: pq.StringArray{"monthly"},
		IsActive:        active,
		CurrentUses:     uses,
		MaxUses:         maxUses,
	}
	require.NoError(t, db.Create(promo).Error)
	if !active {
		require.NoError(t, db.Model(promo).Update("is_active", false).Error)
	}
}

func TestFindActiveByCodeNormalizesAndFilters(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPromo(t, db, "SAVE20", true, nil, 0)
	seedPromo(t, db, "OLD10", false, nil, 0)

	promo, err := repo.FindActiveByCode(ctx, "  save20 ")
	require.NoError(t, err)
	require.NotNil(t, promo)
	assert.Equal(t, "SAVE20", promo.Code)
	assert.True(t, promo.DiscountValue.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, pq.StringArray{"monthly"}, promo.ApplicablePlans)

	inactive, err := repo.FindActiveByCode(ctx, "old10")
	require.NoError(t, err)
	assert.Nil(t, inactive)

	any, err := repo.FindByCode(ctx, "old10")
	require.NoError(t, err)
	require.NotNil(t, any)
	assert.False(t, any.IsActive)

	missing, err := repo.FindActiveByCode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	blank, err := repo.FindActiveByCode(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestIncrementUsageStopsAtMaxUses(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	limit := 2
	seedPromo(t, db, "LIMITED", true, &limit, 0)

	ok, err := repo.IncrementUsage(ctx, "limited")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, "LIMITED")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, "LIMITED")
	require.NoError(t, err)
	assert.False(t, ok, "third redemption must not exceed max_uses")

	promo, err := repo.FindByCode(ctx, "LIMITED")
	require.NoError(t, err)
	assert.Equal(t, 2, promo.CurrentUses)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	db := setupPromoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPromo(t, db, "OPEN", true, nil, 41)

	ok, err := repo.IncrementUsage(ctx, "OPEN")
	require.NoError(t, err)
	assert.True(t, ok)

	promo, err := repo.FindByCode(ctx, "OPEN")
	require.NoError(t, err)
	assert.Equal(t, 42, promo.CurrentUses)

	ok, err = repo.IncrementUsage(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}
