package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	"github.com/bazario-app/bazario-backend/pkg/square"
)

// SquareGateway adapts the platform Square client to the PlatformGateway
// surface. Declines are outcomes; only unknown-result failures come back as
// errors.
type SquareGateway struct {
	client *square.Client
}

// NewSquareGateway wraps the shared Square client.
func NewSquareGateway(client *square.Client) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

// Charge runs one card-on-file payment through Square.
func (g *SquareGateway) Charge(ctx context.Context, payable Payable, profile PlatformProfile, description string) (*Result, error) {
	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: AmountMinorUnits(payable.PayableAmount()),
		Currency:    payable.PayableCurrency(),
		CustomerID:  profile.CustomerID,
		SourceID:    profile.CardID,
		ReferenceID: payable.PayableID().String(),
		Note:        description,
	})
	if err != nil {
		if reason, declined := squareDecline(err); declined {
			return &Result{FailureReason: reason}, nil
		}
		return nil, err
	}

	result := &Result{Reference: paymentID(payment)}
	switch paymentStatus(payment) {
	case "COMPLETED", "APPROVED":
		result.Settled = true
	default:
		result.FailureReason = strings.ToLower(paymentStatus(payment))
	}
	return result, nil
}

// squareDecline unpacks card rejections, which Square surfaces as API errors
// rather than failed payments.
func squareDecline(err error) (string, bool) {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return "", false
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if jsonErr := json.Unmarshal([]byte(inner.Error()), &payload); jsonErr != nil {
		return "", false
	}
	for _, sqErr := range payload.Errors {
		if sqErr == nil {
			continue
		}
		if sqErr.Category == sq.ErrorCategoryPaymentMethodError {
			return strings.ToLower(string(sqErr.Code)), true
		}
	}
	return "", false
}

func paymentID(payment *sq.Payment) string {
	if payment == nil || payment.GetID() == nil {
		return ""
	}
	return *payment.GetID()
}

func paymentStatus(payment *sq.Payment) string {
	if payment == nil || payment.GetStatus() == nil {
		return ""
	}
	return *payment.GetStatus()
}
