package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// BillingPlan is a catalog row for a subscription tier. The id doubles as the
// plan name (basic, premium, enterprise); rows are seeded by migration.
type BillingPlan struct {
	ID            string                 `gorm:"column:id;primaryKey"`
	Plan          enums.SubscriptionPlan `gorm:"column:plan;type:subscription_plan;not null;uniqueIndex"`
	Name          string                 `gorm:"column:name;not null"`
	Status        enums.PlanStatus       `gorm:"column:status;type:plan_status;not null"`
	MonthlyPrice  decimal.Decimal        `gorm:"column:monthly_price;type:numeric(12,2);not null"`
	CurrencyCode  string                 `gorm:"column:currency_code;not null"`
	DefaultMonths int                    `gorm:"column:default_months;not null;default:1"`
	IsDefault     bool                   `gorm:"column:is_default;not null;default:false"`
	Features      pq.StringArray         `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
