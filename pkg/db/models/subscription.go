package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// Subscription is a paid access window for a market. At most one ACTIVE row
// may exist per market (partial unique index uq_subscriptions_active); while
// one exists, markets.subscription_end mirrors its ends_at.
type Subscription struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MarketID        uuid.UUID                `gorm:"column:market_id;type:uuid;not null;index"`
	Plan            enums.SubscriptionPlan   `gorm:"column:plan;type:subscription_plan;not null"`
	DurationMonths  int                      `gorm:"column:duration_months;not null"`
	Amount          decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string                   `gorm:"column:currency;not null;default:'USD'"`
	AutoRenew       bool                     `gorm:"column:auto_renew;not null;default:false"`
	RenewalAttempts int                      `gorm:"column:renewal_attempts;not null;default:0"`
	Status          enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	PaidAt          *time.Time               `gorm:"column:paid_at"`
	StartsAt        time.Time                `gorm:"column:starts_at;not null"`
	EndsAt          time.Time                `gorm:"column:ends_at;not null"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
