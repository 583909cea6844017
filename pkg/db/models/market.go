package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

// Market represents the canonical seller storefront. Rows are never hard
// deleted; retirement is the inactive lifecycle state.
type Market struct {
	ID                    uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID               uuid.UUID                `gorm:"column:owner_id;type:uuid;not null;index"`
	Name                  string                   `gorm:"column:name;not null"`
	Slug                  string                   `gorm:"column:slug;not null;uniqueIndex"`
	Description           *string                  `gorm:"column:description"`
	ContactEmail          *string                  `gorm:"column:contact_email"`
	Phone                 *string                  `gorm:"column:phone"`
	Status                enums.MarketStatus       `gorm:"column:status;type:market_status;not null;default:'unpaid_under_creation'"`
	PaymentGatewayType    enums.PaymentGatewayType `gorm:"column:payment_gateway_type;type:payment_gateway_type;not null;default:'platform'"`
	PersonalGatewayConfig *types.GatewayConfig     `gorm:"column:personal_gateway_config;type:jsonb"`
	SquareCustomerID      *string                  `gorm:"column:square_customer_id"`
	SquareCardID          *string                  `gorm:"column:square_card_id"`
	SubscriptionStart     *time.Time               `gorm:"column:subscription_start"`
	SubscriptionEnd       *time.Time               `gorm:"column:subscription_end"`
	Address               types.Address            `gorm:"column:address;type:address_t;not null"`
	Social                *types.Social            `gorm:"column:social;type:social_t"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
