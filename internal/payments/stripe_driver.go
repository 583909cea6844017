package payments

import (
	"context"

	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/stripe"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

// StripeDriver charges through a seller's own Stripe account. The config bag
// maps gateway_name="stripe", api_key=merchant secret key, merchant_id=the
// Stripe customer holding the seller's payment method.
type StripeDriver struct{}

// NewStripeDriver builds the stripe merchant driver.
func NewStripeDriver() *StripeDriver {
	return &StripeDriver{}
}

// Name identifies the driver in the router's registry.
func (d *StripeDriver) Name() string {
	return "stripe"
}

// Charge confirms an off-session payment intent on the merchant account.
func (d *StripeDriver) Charge(ctx context.Context, cfg types.GatewayConfig, payable Payable, description string) (*Result, error) {
	client, err := stripe.NewMerchantClient(cfg.APIKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidGatewayConfig, err, "init merchant stripe client")
	}

	outcome, err := client.CreateCharge(ctx, stripe.ChargeParams{
		AmountMinor: AmountMinorUnits(payable.PayableAmount()),
		Currency:    payable.PayableCurrency(),
		CustomerID:  cfg.MerchantID,
		Description: description,
		ReferenceID: payable.PayableID().String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merchant stripe charge")
	}

	return &Result{
		Settled:       outcome.Settled,
		Reference:     outcome.IntentID,
		FailureReason: outcome.FailureReason,
	}, nil
}
