package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

// Payable is the capability the router charges against. The router never
// learns what a market or a subscription is; callers hand it an id, an
// amount, and a currency.
type Payable interface {
	PayableID() uuid.UUID
	PayableAmount() decimal.Decimal
	PayableCurrency() string
}

// PlatformProfile carries the vaulted platform-gateway handles for a payable.
type PlatformProfile struct {
	CustomerID string
	CardID     string
}

// Route selects the gateway for one charge. Exactly one of Platform or
// Personal is consulted, driven by the gateway type on the owning market.
type Route struct {
	GatewayType enums.PaymentGatewayType
	Platform    *PlatformProfile
	Personal    *types.GatewayConfig
}

// Result is the settled/declined verdict of one charge attempt. A returned
// error means the outcome is unknown (transport failure, timeout) and the
// caller must not treat the charge as either settled or declined.
type Result struct {
	Settled       bool
	Reference     string
	FailureReason string
}

// PlatformGateway is the platform's own payment backend.
type PlatformGateway interface {
	Charge(ctx context.Context, payable Payable, profile PlatformProfile, description string) (*Result, error)
}

// MerchantDriver charges through a seller-configured gateway. The config bag
// arrives with the api key already unsealed.
type MerchantDriver interface {
	Name() string
	Charge(ctx context.Context, cfg types.GatewayConfig, payable Payable, description string) (*Result, error)
}

type credentialOpener interface {
	OpenString(sealed string) (string, error)
}

// Router dispatches charges to the platform gateway or a merchant driver.
// It never mutates market or subscription state; callers act on the Result.
type Router struct {
	platform PlatformGateway
	drivers  map[string]MerchantDriver
	opener   credentialOpener
	logg     *logger.Logger
}

// RouterParams wires the router's collaborators.
type RouterParams struct {
	Platform PlatformGateway
	Drivers  []MerchantDriver
	Opener   credentialOpener
	Logger   *logger.Logger
}

// NewRouter builds a payment router. Adding a gateway means registering
// another driver; the dispatch below never changes.
func NewRouter(params RouterParams) (*Router, error) {
	if params.Platform == nil {
		return nil, fmt.Errorf("platform gateway required")
	}
	if params.Opener == nil {
		return nil, fmt.Errorf("credential opener required")
	}
	drivers := make(map[string]MerchantDriver, len(params.Drivers))
	for _, driver := range params.Drivers {
		if driver == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(driver.Name()))
		if name == "" {
			return nil, fmt.Errorf("merchant driver with empty name")
		}
		if _, exists := drivers[name]; exists {
			return nil, fmt.Errorf("duplicate merchant driver %q", name)
		}
		drivers[name] = driver
	}
	return &Router{
		platform: params.Platform,
		drivers:  drivers,
		opener:   params.Opener,
		logg:     params.Logger,
	}, nil
}

// Charge runs one gateway attempt for the payable over the selected route.
func (r *Router) Charge(ctx context.Context, payable Payable, route Route, description string) (*Result, error) {
	if payable == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payable required")
	}
	if payable.PayableAmount().Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	switch route.GatewayType {
	case enums.PaymentGatewayTypePlatform:
		return r.chargePlatform(ctx, payable, route, description)
	case enums.PaymentGatewayTypePersonal:
		return r.chargePersonal(ctx, payable, route, description)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown gateway type %q", route.GatewayType))
	}
}

func (r *Router) chargePlatform(ctx context.Context, payable Payable, route Route, description string) (*Result, error) {
	if route.Platform == nil || strings.TrimSpace(route.Platform.CustomerID) == "" || strings.TrimSpace(route.Platform.CardID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidGatewayConfig,
			"no payment method on file for the platform gateway")
	}
	result, err := r.platform.Charge(ctx, payable, *route.Platform, description)
	if err != nil {
		return nil, err
	}
	r.logResult(ctx, payable, "platform", result)
	return result, nil
}

func (r *Router) chargePersonal(ctx context.Context, payable Payable, route Route, description string) (*Result, error) {
	// Config completeness is checked before any network call; a half-filled
	// bag must fail fast, not half-charge.
	if route.Personal == nil || !route.Personal.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidGatewayConfig,
			"personal gateway config requires gateway_name, api_key, and merchant_id")
	}

	name := strings.ToLower(strings.TrimSpace(route.Personal.GatewayName))
	driver, ok := r.drivers[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidGatewayConfig,
			fmt.Sprintf("unsupported personal gateway %q", name))
	}

	cfg := *route.Personal
	apiKey, err := r.opener.OpenString(cfg.APIKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidGatewayConfig, err, "unseal gateway credential")
	}
	cfg.APIKey = apiKey

	result, err := driver.Charge(ctx, cfg, payable, description)
	if err != nil {
		return nil, err
	}
	r.logResult(ctx, payable, name, result)
	return result, nil
}

func (r *Router) logResult(ctx context.Context, payable Payable, gateway string, result *Result) {
	if r.logg == nil || result == nil {
		return
	}
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"payable_id": payable.PayableID().String(),
		"gateway":    gateway,
		"settled":    result.Settled,
		"reference":  result.Reference,
	})
	if result.Settled {
		r.logg.Info(logCtx, "charge settled")
		return
	}
	r.logg.Warn(r.logg.WithField(logCtx, "failure_reason", result.FailureReason), "charge declined")
}

// AmountMinorUnits converts a decimal major-unit amount into gateway minor
// units (cents).
func AmountMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
