package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client wraps one merchant's Stripe account for direct charges. Unlike the
// platform gateway there is no process-wide client; each seller brings their
// own secret key via gateway config.
type Client struct {
	api         *stripe.Client
	environment string
}

// NewMerchantClient initializes a Stripe client from a merchant secret key.
func NewMerchantClient(apiKey string) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}

	env, err := environmentForKey(key)
	if err != nil {
		return nil, err
	}

	return &Client{
		api:         stripe.NewClient(key),
		environment: env,
	}, nil
}

// Environment reports whether the merchant key is a test or live key.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// ChargeParams describes a merchant-initiated off-session charge.
type ChargeParams struct {
	AmountMinor int64
	Currency    string
	CustomerID  string
	Description string
	ReferenceID string
}

// ChargeOutcome is the settled/declined verdict for one charge attempt.
// Declines are outcomes, not errors; errors mean the attempt outcome is
// unknown (transport failure, bad credentials).
type ChargeOutcome struct {
	IntentID      string
	Settled       bool
	FailureReason string
}

// CreateCharge confirms a payment intent against the merchant's customer.
func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*ChargeOutcome, error) {
	if c == nil || c.api == nil {
		return nil, errAPIKeyRequired
	}
	if params.AmountMinor <= 0 {
		return nil, fmt.Errorf("charge amount must be positive")
	}
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, fmt.Errorf("stripe customer id is required")
	}

	req := &stripe.PaymentIntentCreateParams{
		Amount:     stripe.Int64(params.AmountMinor),
		Currency:   stripe.String(strings.ToLower(params.Currency)),
		Customer:   stripe.String(params.CustomerID),
		Confirm:    stripe.Bool(true),
		OffSession: stripe.Bool(true),
	}
	if trimmed := strings.TrimSpace(params.Description); trimmed != "" {
		req.Description = stripe.String(trimmed)
	}
	if trimmed := strings.TrimSpace(params.ReferenceID); trimmed != "" {
		req.Metadata = map[string]string{"reference_id": trimmed}
	}

	intent, err := c.api.V1PaymentIntents.Create(ctx, req)
	if err != nil {
		if outcome, declined := declineFromError(err); declined {
			return outcome, nil
		}
		return nil, fmt.Errorf("stripe create charge: %w", err)
	}

	outcome := outcomeFromIntent(intent)
	return &outcome, nil
}

func outcomeFromIntent(intent *stripe.PaymentIntent) ChargeOutcome {
	if intent == nil {
		return ChargeOutcome{FailureReason: "missing payment intent"}
	}
	outcome := ChargeOutcome{IntentID: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		outcome.Settled = true
	default:
		outcome.FailureReason = string(intent.Status)
	}
	return outcome
}

// declineFromError unpacks card declines, which Stripe surfaces as errors on
// confirmed intents.
func declineFromError(err error) (*ChargeOutcome, bool) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return nil, false
	}
	if stripeErr.Type != stripe.ErrorTypeCard {
		return nil, false
	}

	outcome := &ChargeOutcome{FailureReason: declineReason(stripeErr)}
	if stripeErr.PaymentIntent != nil {
		outcome.IntentID = stripeErr.PaymentIntent.ID
	}
	return outcome, true
}

func declineReason(stripeErr *stripe.Error) string {
	if stripeErr.DeclineCode != "" {
		return string(stripeErr.DeclineCode)
	}
	if stripeErr.Code != "" {
		return string(stripeErr.Code)
	}
	return "card_declined"
}

func environmentForKey(key string) (string, error) {
	switch {
	case strings.HasPrefix(key, "sk_test"), strings.HasPrefix(key, "rk_test"):
		return testEnv, nil
	case strings.HasPrefix(key, "sk_live"), strings.HasPrefix(key, "rk_live"):
		return liveEnv, nil
	default:
		return "", fmt.Errorf("stripe key must be a secret key (sk_test/rk_test/sk_live/rk_live)")
	}
}
