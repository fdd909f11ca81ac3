package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v82"

	"github.com/calbec/lessonmarket/internal/metrics"
)

const maxWebhookBody = 64 << 10

type webhookVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type onboardingCompleter interface {
	CompleteOnboardingByAccount(ctx context.Context, accountID string) error
}

// WebhookHandler receives Stripe events. Authentication is the payload
// signature, not a session, so the route stays outside the guard.
type WebhookHandler struct {
	verifier webhookVerifier
	profiles onboardingCompleter
	metrics  *metrics.Collector
	logger   *slog.Logger
}

func NewWebhookHandler(verifier webhookVerifier, profiles onboardingCompleter, collector *metrics.Collector, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		profiles: profiles,
		metrics:  collector,
		logger:   logger,
	}
}

// Handle verifies the signature and dispatches by event type. A failed
// profile update returns 500 so Stripe redelivers the event.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.verifier.ConstructWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	h.metrics.RecordWebhookEvent(string(event.Type))

	switch event.Type {
	case "account.updated":
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			writeError(w, http.StatusBadRequest, "Malformed event payload")
			return
		}
		if account.ChargesEnabled {
			if err := h.profiles.CompleteOnboardingByAccount(r.Context(), account.ID); err != nil {
				h.logger.Error("mark onboarding complete", "account", account.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to update profile")
				return
			}
			h.logger.Info("creator onboarding complete", "account", account.ID)
		}

	case "payment_intent.succeeded":
		h.logger.Info("payment succeeded", "event_id", event.ID)

	case "payment_method.attached":
		h.logger.Info("payment method attached", "event_id", event.ID)

	default:
		h.logger.Debug("unhandled webhook event", "type", event.Type)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
