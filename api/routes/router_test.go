package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/approvals"
	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	pkgAuth "github.com/bazario-app/bazario-backend/pkg/auth"
	"github.com/bazario-app/bazario-backend/pkg/config"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubMarketService struct{}

func (stubMarketService) Create(context.Context, uuid.UUID, markets.CreateMarketInput) (*markets.MarketDTO, error) {
	return &markets.MarketDTO{}, nil
}

func (stubMarketService) GetByID(context.Context, uuid.UUID) (*markets.MarketDTO, error) {
	return &markets.MarketDTO{}, nil
}

func (stubMarketService) ListByOwner(context.Context, uuid.UUID) ([]markets.MarketDTO, error) {
	return nil, nil
}

func (stubMarketService) UpdateProfile(context.Context, uuid.UUID, uuid.UUID, markets.UpdateMarketInput) (*markets.MarketDTO, error) {
	return &markets.MarketDTO{}, nil
}

func (stubMarketService) UpdateGatewayConfig(context.Context, uuid.UUID, uuid.UUID, markets.UpdateGatewayInput) (*markets.MarketDTO, error) {
	return &markets.MarketDTO{}, nil
}

type stubHistoryService struct{}

func (stubHistoryService) RecordTransition(context.Context, *gorm.DB, history.RecordTransitionInput) (*models.WorkflowHistoryEntry, error) {
	return nil, nil
}

func (stubHistoryService) ListByMarketID(context.Context, uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
	return nil, nil
}

type stubApprovalService struct{}

func (stubApprovalService) Submit(context.Context, approvals.SubmitInput) (*models.ApprovalRequest, error) {
	return &models.ApprovalRequest{}, nil
}

func (stubApprovalService) Decide(context.Context, approvals.DecideInput) (*models.ApprovalRequest, error) {
	return &models.ApprovalRequest{}, nil
}

func (stubApprovalService) ListPending(context.Context, workflow.Actor) ([]models.ApprovalRequest, error) {
	return nil, nil
}

func (stubApprovalService) ListByMarket(context.Context, workflow.Actor, uuid.UUID) ([]models.ApprovalRequest, error) {
	return nil, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) ActivateInTx(context.Context, *gorm.DB, subscriptions.ActivateInput) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionService) InitiateCheckout(context.Context, subscriptions.CheckoutInput) (*subscriptions.CheckoutResult, error) {
	return &subscriptions.CheckoutResult{}, nil
}

func (stubSubscriptionService) SettlePayment(context.Context, subscriptions.SettleInput) (*models.Charge, error) {
	return nil, nil
}

func (stubSubscriptionService) Cancel(context.Context, workflow.Actor, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionService) GetActive(context.Context, workflow.Actor, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionService) ListByMarket(context.Context, workflow.Actor, uuid.UUID) ([]models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionService) SweepExpirations(context.Context, time.Time) (subscriptions.SweepReport, error) {
	return subscriptions.SweepReport{}, nil
}

type stubEngine struct{}

func (stubEngine) Transition(context.Context, workflow.TransitionParams) (*workflow.Result, error) {
	return &workflow.Result{}, nil
}

func (stubEngine) TransitionInTx(context.Context, *gorm.DB, workflow.TransitionParams) (*workflow.Result, error) {
	return &workflow.Result{}, nil
}

func (stubEngine) Force(context.Context, workflow.ForceParams) (*workflow.Result, error) {
	return &workflow.Result{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Redis:         (*redis.Client)(nil),
		Markets:       stubMarketService{},
		History:       stubHistoryService{},
		Approvals:     stubApprovalService{},
		Subscriptions: stubSubscriptionService{},
		Engine:        stubEngine{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	marketID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:         uuid.New(),
		ActiveMarketID: &marketID,
		Role:           role,
		JTI:            uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicPingRequiresNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	owner := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestAdminApprovalQueueRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	owner := httptest.NewRequest(http.MethodGet, "/api/v1/admin/approvals", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin queue got %d", resp.Code)
	}
}

func TestMarketRoutesReachable(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/markets/"+uuid.NewString()+"/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOwner))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWebhookRouteRejectsMissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Webhook.PaymentsSecret = "whsec"
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
