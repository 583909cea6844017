package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

type testPayable struct {
	id       uuid.UUID
	amount   decimal.Decimal
	currency string
}

func (p testPayable) PayableID() uuid.UUID           { return p.id }
func (p testPayable) PayableAmount() decimal.Decimal { return p.amount }
func (p testPayable) PayableCurrency() string        { return p.currency }

type stubPlatform struct {
	calls  int
	result *Result
	err    error
}

func (s *stubPlatform) Charge(ctx context.Context, payable Payable, profile PlatformProfile, description string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

type stubDriver struct {
	name   string
	calls  int
	gotCfg types.GatewayConfig
	result *Result
	err    error
}

func (s *stubDriver) Name() string { return s.name }

func (s *stubDriver) Charge(ctx context.Context, cfg types.GatewayConfig, payable Payable, description string) (*Result, error) {
	s.calls++
	s.gotCfg = cfg
	return s.result, s.err
}

type stubOpener struct {
	err error
}

func (s stubOpener) OpenString(sealed string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "open:" + sealed, nil
}

func newTestRouter(t *testing.T, platform *stubPlatform, drivers ...MerchantDriver) *Router {
	t.Helper()
	router, err := NewRouter(RouterParams{
		Platform: platform,
		Drivers:  drivers,
		Opener:   stubOpener{},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router
}

func payableFixture() testPayable {
	return testPayable{
		id:       uuid.New(),
		amount:   decimal.RequireFromString("29.99"),
		currency: "USD",
	}
}

func TestChargePlatformRoute(t *testing.T) {
	platform := &stubPlatform{result: &Result{Settled: true, Reference: "pay_1"}}
	router := newTestRouter(t, platform)

	result, err := router.Charge(context.Background(), payableFixture(), Route{
		GatewayType: enums.PaymentGatewayTypePlatform,
		Platform:    &PlatformProfile{CustomerID: "cust_1", CardID: "card_1"},
	}, "subscription")
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !result.Settled || result.Reference != "pay_1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if platform.calls != 1 {
		t.Fatalf("expected one platform call, got %d", platform.calls)
	}
}

func TestChargePlatformWithoutProfile(t *testing.T) {
	platform := &stubPlatform{result: &Result{Settled: true}}
	router := newTestRouter(t, platform)

	_, err := router.Charge(context.Background(), payableFixture(), Route{
		GatewayType: enums.PaymentGatewayTypePlatform,
	}, "")
	assertCode(t, err, pkgerrors.CodeInvalidGatewayConfig)
	if platform.calls != 0 {
		t.Fatalf("platform gateway should not be called, got %d calls", platform.calls)
	}
}

func TestChargePersonalIncompleteConfigFailsBeforeNetwork(t *testing.T) {
	driver := &stubDriver{name: "stripe", result: &Result{Settled: true}}
	router := newTestRouter(t, &stubPlatform{}, driver)

	// Empty api_key must be rejected before any driver call.
	_, err := router.Charge(context.Background(), payableFixture(), Route{
		GatewayType: enums.PaymentGatewayTypePersonal,
		Personal: &types.GatewayConfig{
			GatewayName: "stripe",
			MerchantID:  "cus_123",
		},
	}, "")
	assertCode(t, err, pkgerrors.CodeInvalidGatewayConfig)
	if driver.calls != 0 {
		t.Fatalf("driver should not be called, got %d calls", driver.calls)
	}
}

func TestChargePersonalUnknownGateway(t *testing.T) {
	router := newTestRouter(t, &stubPlatform{}, &stubDriver{name: "stripe"})

	_, err := router.Charge(context.Background(), payableFixture(), Route{
		GatewayType: enums.PaymentGatewayTypePersonal,
		Personal: &types.GatewayConfig{
			GatewayName: "paypal",
			APIKey:      "sealed",
			MerchantID:  "m_1",
		},
	}, "")
	assertCode(t, err, pkgerrors.CodeInvalidGatewayConfig)
}

func TestChargePersonalUnsealsCredential(t *testing.T) {
	driver := &stubDriver{name: "stripe", result: &Result{Settled: false, FailureReason: "card_declined"}}
	router := newTestRouter(t, &stubPlatform{}, driver)

	result, err := router.Charge(context.Background(), payableFixture(), Route{
		GatewayType: enums.PaymentGatewayTypePersonal,
		Personal: &types.GatewayConfig{
			GatewayName: "Stripe",
			APIKey:      "sealed-key",
			MerchantID:  "cus_123",
		},
	}, "renewal")
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if result.Settled {
		t.Fatalf("expected declined result")
	}
	if result.FailureReason != "card_declined" {
		t.Fatalf("unexpected failure reason %q", result.FailureReason)
	}
	if driver.gotCfg.APIKey != "open:sealed-key" {
		t.Fatalf("driver got api key %q, want unsealed value", driver.gotCfg.APIKey)
	}
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	router := newTestRouter(t, &stubPlatform{})

	payable := testPayable{id: uuid.New(), amount: decimal.Zero, currency: "USD"}
	_, err := router.Charge(context.Background(), payable, Route{
		GatewayType: enums.PaymentGatewayTypePlatform,
		Platform:    &PlatformProfile{CustomerID: "c", CardID: "k"},
	}, "")
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAmountMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"29.99", 2999},
		{"10", 1000},
		{"0.01", 1},
		{"19.999", 2000},
	}
	for _, tc := range cases {
		got := AmountMinorUnits(decimal.RequireFromString(tc.amount))
		if got != tc.want {
			t.Fatalf("AmountMinorUnits(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}
