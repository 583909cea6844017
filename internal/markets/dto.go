package markets

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

const maskedAPIKey = "********"

// MarketDTO exposes safe market data in API responses. The personal gateway
// api_key is never echoed back, only its masked placeholder.
type MarketDTO struct {
	ID                 uuid.UUID                `json:"id"`
	OwnerID            uuid.UUID                `json:"owner_id"`
	Name               string                   `json:"name"`
	Slug               string                   `json:"slug"`
	Description        *string                  `json:"description,omitempty"`
	ContactEmail       *string                  `json:"contact_email,omitempty"`
	Phone              *string                  `json:"phone,omitempty"`
	Status             enums.MarketStatus       `json:"status"`
	PaymentGatewayType enums.PaymentGatewayType `json:"payment_gateway_type"`
	GatewayConfig      *GatewayConfigDTO        `json:"gateway_config,omitempty"`
	SubscriptionStart  *time.Time               `json:"subscription_start,omitempty"`
	SubscriptionEnd    *time.Time               `json:"subscription_end,omitempty"`
	Address            types.Address            `json:"address"`
	Social             *types.Social            `json:"social,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// GatewayConfigDTO is the redacted view of a personal gateway bag.
type GatewayConfigDTO struct {
	GatewayName string `json:"gateway_name"`
	APIKey      string `json:"api_key"`
	MerchantID  string `json:"merchant_id"`
}

// CreateMarketDTO holds creation-time data for a new market.
type CreateMarketDTO struct {
	OwnerID      uuid.UUID
	Name         string
	Slug         string
	Description  *string
	ContactEmail *string
	Phone        *string
	Address      types.Address
	Social       *types.Social
}

// FromModel maps the persisted market into a DTO.
func FromModel(m *models.Market) *MarketDTO {
	if m == nil {
		return nil
	}

	dto := &MarketDTO{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		Name:               m.Name,
		Slug:               m.Slug,
		Description:        m.Description,
		ContactEmail:       m.ContactEmail,
		Phone:              m.Phone,
		Status:             m.Status,
		PaymentGatewayType: m.PaymentGatewayType,
		SubscriptionStart:  m.SubscriptionStart,
		SubscriptionEnd:    m.SubscriptionEnd,
		Address:            m.Address,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.Social != nil {
		cpy := *m.Social
		dto.Social = &cpy
	}
	if m.PersonalGatewayConfig != nil {
		dto.GatewayConfig = &GatewayConfigDTO{
			GatewayName: m.PersonalGatewayConfig.GatewayName,
			APIKey:      maskSecret(m.PersonalGatewayConfig.APIKey),
			MerchantID:  m.PersonalGatewayConfig.MerchantID,
		}
	}

	return dto
}

// ToModel prepares the GORM model from creation DTO, supplying defaults.
// New markets always enter the workflow at unpaid_under_creation on the
// platform gateway.
func (c CreateMarketDTO) ToModel() *models.Market {
	model := &models.Market{
		OwnerID:            c.OwnerID,
		Name:               c.Name,
		Slug:               c.Slug,
		Description:        c.Description,
		ContactEmail:       c.ContactEmail,
		Phone:              c.Phone,
		Status:             enums.MarketStatusUnpaidUnderCreation,
		PaymentGatewayType: enums.PaymentGatewayTypePlatform,
		Address:            c.Address,
	}

	if c.Social != nil {
		cpy := *c.Social
		model.Social = &cpy
	}

	return model
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return maskedAPIKey
}
