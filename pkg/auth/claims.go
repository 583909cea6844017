package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	ActiveMarketID *uuid.UUID
	Role           enums.ActorRole
	JTI            string
}

// AccessTokenClaims represents the typed JWT presented by clients. Tokens are
// minted by the external identity service; this backend validates them for
// actor and audit context only.
type AccessTokenClaims struct {
	UserID         uuid.UUID       `json:"user_id"`
	ActiveMarketID *uuid.UUID      `json:"active_market_id,omitempty"`
	Role           enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
