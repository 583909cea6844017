package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// MarketStatusChangedEvent is emitted on every workflow transition, forced or not.
type MarketStatusChangedEvent struct {
	MarketID    uuid.UUID            `json:"market_id"`
	FromStatus  enums.MarketStatus   `json:"from_status"`
	ToStatus    enums.MarketStatus   `json:"to_status"`
	Action      enums.WorkflowAction `json:"action"`
	PerformedBy string               `json:"performed_by"`
	Note        string               `json:"note,omitempty"`
}

// ApprovalRequestedEvent signals a new pending review item for operators.
type ApprovalRequestedEvent struct {
	ApprovalRequestID uuid.UUID                 `json:"approval_request_id"`
	MarketID          uuid.UUID                 `json:"market_id"`
	RequestType       enums.ApprovalRequestType `json:"request_type"`
	RequestedBy       uuid.UUID                 `json:"requested_by"`
	Note              string                    `json:"note,omitempty"`
}

// ApprovalDecidedEvent carries the operator verdict on a pending request.
type ApprovalDecidedEvent struct {
	ApprovalRequestID uuid.UUID                   `json:"approval_request_id"`
	MarketID          uuid.UUID                   `json:"market_id"`
	RequestType       enums.ApprovalRequestType   `json:"request_type"`
	Outcome           enums.ApprovalRequestStatus `json:"outcome"`
	DecidedBy         uuid.UUID                   `json:"decided_by"`
	AdminResponse     string                      `json:"admin_response,omitempty"`
}

// SubscriptionActivatedEvent is emitted when a paid window opens, including renewals.
type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID              `json:"subscription_id"`
	MarketID       uuid.UUID              `json:"market_id"`
	Plan           enums.SubscriptionPlan `json:"plan"`
	StartsAt       time.Time              `json:"starts_at"`
	EndsAt         time.Time              `json:"ends_at"`
	Renewal        bool                   `json:"renewal"`
}

// SubscriptionExpiredEvent is emitted by the sweep when a paid window lapses
// without a successful renewal.
type SubscriptionExpiredEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	MarketID       uuid.UUID `json:"market_id"`
	EndedAt        time.Time `json:"ended_at"`
	AutoRenew      bool      `json:"auto_renew"`
}

// SubscriptionRenewalFailedEvent reports one failed auto-renew charge attempt.
type SubscriptionRenewalFailedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	MarketID       uuid.UUID `json:"market_id"`
	Attempts       int       `json:"attempts"`
	MaxAttempts    int       `json:"max_attempts"`
	Reason         string    `json:"reason,omitempty"`
}

// PaymentSettledEvent confirms a gateway charge completed.
type PaymentSettledEvent struct {
	ChargeID  uuid.UUID                `json:"charge_id"`
	MarketID  uuid.UUID                `json:"market_id"`
	Gateway   enums.PaymentGatewayType `json:"gateway"`
	Reference string                   `json:"reference,omitempty"`
	Amount    decimal.Decimal          `json:"amount"`
	Currency  string                   `json:"currency"`
}

// PaymentFailedEvent reports a declined or errored gateway charge.
type PaymentFailedEvent struct {
	ChargeID uuid.UUID                `json:"charge_id"`
	MarketID uuid.UUID                `json:"market_id"`
	Gateway  enums.PaymentGatewayType `json:"gateway"`
	Reason   string                   `json:"reason,omitempty"`
}
