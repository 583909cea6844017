package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// ApprovalRequest tracks an owner's petition for an admin decision. At most
// one PENDING row may exist per (market_id, request_type); the partial unique
// index uq_approval_requests_pending backs the service-level check. Decided
// rows are terminal.
type ApprovalRequest struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MarketID      uuid.UUID                   `gorm:"column:market_id;type:uuid;not null;index"`
	RequestType   enums.ApprovalRequestType   `gorm:"column:request_type;type:approval_request_type;not null"`
	Status        enums.ApprovalRequestStatus `gorm:"column:status;type:approval_request_status;not null;default:'pending'"`
	Note          *string                     `gorm:"column:note"`
	AdminResponse *string                     `gorm:"column:admin_response"`
	RequestedBy   uuid.UUID                   `gorm:"column:requested_by;type:uuid;not null"`
	RequestedAt   time.Time                   `gorm:"column:requested_at;autoCreateTime"`
	DecidedBy     *uuid.UUID                  `gorm:"column:decided_by;type:uuid"`
	DecidedAt     *time.Time                  `gorm:"column:decided_at"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
