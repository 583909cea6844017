package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// Charge is one payment router invocation against a market. A row is written
// PENDING before the gateway call; settlement stamps the gateway reference and
// the terminal status.
type Charge struct {
	ID             uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MarketID       uuid.UUID                `gorm:"column:market_id;type:uuid;not null;index"`
	SubscriptionID *uuid.UUID               `gorm:"column:subscription_id;type:uuid"`
	Gateway        enums.PaymentGatewayType `gorm:"column:gateway;type:payment_gateway_type;not null"`
	Reference      *string                  `gorm:"column:reference;uniqueIndex"`
	Amount         decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency       string                   `gorm:"column:currency;not null;default:'USD'"`
	Status         enums.ChargeStatus       `gorm:"column:status;type:charge_status;not null;default:'pending'"`
	Plan           *enums.SubscriptionPlan  `gorm:"column:plan;type:subscription_plan"`
	DurationMonths *int                     `gorm:"column:duration_months"`
	AutoRenew      bool                     `gorm:"column:auto_renew;not null;default:false"`
	Description    *string                  `gorm:"column:description"`
	FailureReason  *string                  `gorm:"column:failure_reason"`
	BilledAt       *time.Time               `gorm:"column:billed_at"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
