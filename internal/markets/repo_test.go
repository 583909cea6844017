package markets

import (
	"context"
	"testing"
	"time"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/bazario-app/bazario-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMarketsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	markets := `
CREATE TABLE IF NOT EXISTS markets (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  contact_email TEXT,
  phone TEXT,
  status TEXT NOT NULL DEFAULT 'unpaid_under_creation',
  payment_gateway_type TEXT NOT NULL DEFAULT 'platform',
  personal_gateway_config TEXT,
  square_customer_id TEXT,
  square_card_id TEXT,
  subscription_start DATETIME,
  subscription_end DATETIME,
  address TEXT NOT NULL,
  social TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(markets).Error)
	return db
}

func seedMarket(t *testing.T, db *gorm.DB, owner uuid.UUID, slug string, status enums.MarketStatus) *models.Market {
	t.Helper()

	market := &models.Market{
		ID:                 uuid.New(),
		OwnerID:            owner,
		Name:               "Market " + slug,
		Slug:               slug,
		Status:             status,
		PaymentGatewayType: enums.PaymentGatewayTypePlatform,
		Address: types.Address{
			Line1:      "500 Commerce Way",
			City:       "Austin",
			State:      "TX",
			PostalCode: "78701",
			Country:    "US",
			Lat:        30.2672,
			Lng:        -97.7431,
		},
	}
	require.NoError(t, db.Create(market).Error)
	return market
}

func TestRepositoryFindByIDAndOwner(t *testing.T) {
	db := setupMarketsTestDB(t)
	repo := NewRepository(db)

	owner := uuid.New()
	first := seedMarket(t, db, owner, "first-market", enums.MarketStatusUnpaidUnderCreation)
	seedMarket(t, db, owner, "second-market", enums.MarketStatusPublished)
	seedMarket(t, db, uuid.New(), "other-owner", enums.MarketStatusPublished)

	got, err := repo.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Slug, got.Slug)
	assert.Equal(t, enums.MarketStatusUnpaidUnderCreation, got.Status)

	owned, err := repo.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestRepositoryUpdateStatusWithTxCAS(t *testing.T) {
	db := setupMarketsTestDB(t)
	repo := NewRepository(db)

	market := seedMarket(t, db, uuid.New(), "cas-market", enums.MarketStatusPaymentPending)

	err := db.Transaction(func(tx *gorm.DB) error {
		affected, err := repo.UpdateStatusWithTx(tx, market.ID, enums.MarketStatusPaymentPending, enums.MarketStatusPaidUnderCreation)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		return nil
	})
	require.NoError(t, err)

	reloaded, err := repo.FindByID(context.Background(), market.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.MarketStatusPaidUnderCreation, reloaded.Status)

	// A stale caller still expecting payment_pending loses the race.
	err = db.Transaction(func(tx *gorm.DB) error {
		affected, err := repo.UpdateStatusWithTx(tx, market.ID, enums.MarketStatusPaymentPending, enums.MarketStatusUnpaidUnderCreation)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
		return nil
	})
	require.NoError(t, err)

	reloaded, err = repo.FindByID(context.Background(), market.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.MarketStatusPaidUnderCreation, reloaded.Status)
}

func TestRepositoryUpdateSubscriptionWindowWithTx(t *testing.T) {
	db := setupMarketsTestDB(t)
	repo := NewRepository(db)

	market := seedMarket(t, db, uuid.New(), "window-market", enums.MarketStatusPaidUnderCreation)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.UpdateSubscriptionWindowWithTx(tx, market.ID, &start, &end)
	})
	require.NoError(t, err)

	reloaded, err := repo.FindByID(context.Background(), market.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.SubscriptionStart)
	require.NotNil(t, reloaded.SubscriptionEnd)
	assert.True(t, reloaded.SubscriptionStart.Equal(start))
	assert.True(t, reloaded.SubscriptionEnd.Equal(end))
}

func TestRepositoryListByStatusUpdatedBefore(t *testing.T) {
	db := setupMarketsTestDB(t)
	repo := NewRepository(db)

	stale := seedMarket(t, db, uuid.New(), "stale-pending", enums.MarketStatusPaymentPending)
	fresh := seedMarket(t, db, uuid.New(), "fresh-pending", enums.MarketStatusPaymentPending)
	seedMarket(t, db, uuid.New(), "published", enums.MarketStatusPublished)

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.Market{}).
		Where("id = ?", stale.ID).
		Update("updated_at", old).Error)

	cutoff := time.Now().UTC().Add(-time.Hour)
	got, err := repo.ListByStatusUpdatedBefore(context.Background(), enums.MarketStatusPaymentPending, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEqual(t, fresh.ID, got[0].ID)
}
