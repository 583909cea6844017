package webhooks

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/bazario-app/bazario-backend/api/responses"
	paymentwebhook "github.com/bazario-app/bazario-backend/internal/webhooks/payments"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

// PaymentsWebhookService handles a decoded gateway event.
type PaymentsWebhookService interface {
	HandleEvent(ctx context.Context, event paymentwebhook.Event) error
}

// PaymentsWebhook ingests gateway settlement callbacks. Deliveries carry a
// shared secret in X-Webhook-Secret; anything without it is dropped before
// the body is even decoded.
func PaymentsWebhook(svc PaymentsWebhookService, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}

		provided := strings.TrimSpace(r.Header.Get("X-Webhook-Secret"))
		if !hmac.Equal([]byte(provided), []byte(secret)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event paymentwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
