package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/calbec/lessonmarket/internal/checkout"
	"github.com/calbec/lessonmarket/internal/metrics"
	"github.com/calbec/lessonmarket/internal/model"
)

// sessionSource exposes the current signed-in session to handlers that
// need the caller's identity.
type sessionSource interface {
	Session() *model.Session
}

type orchestrator interface {
	CreateSession(ctx context.Context, lessonID string, price float64, userID string) (*checkout.Created, error)
	VerifySession(ctx context.Context, sessionID string) error
}

type CheckoutHandler struct {
	checkout orchestrator
	sessions sessionSource
	metrics  *metrics.Collector
	logger   *slog.Logger
}

func NewCheckoutHandler(co orchestrator, sessions sessionSource, collector *metrics.Collector, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: co,
		sessions: sessions,
		metrics:  collector,
		logger:   logger,
	}
}

// CreateCheckoutSession starts the hosted payment flow for a lesson and
// returns the session id and redirect URL.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LessonID string  `json:"lessonId"`
		Price    float64 `json:"price"`
		UserID   string  `json:"userId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		if sess := h.sessions.Session(); sess != nil {
			req.UserID = sess.User.ID
		}
	}

	created, err := h.checkout.CreateSession(r.Context(), req.LessonID, req.Price, req.UserID)
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, checkout.ErrLessonNotFound):
			writeError(w, http.StatusNotFound, "Lesson not found")
		case errors.Is(err, checkout.ErrCreatorNotOnboarded):
			writeError(w, http.StatusBadRequest, "Creator has not completed payment onboarding")
		default:
			h.metrics.RecordCheckoutFailed()
			h.logger.Error("create checkout session", "lesson_id", req.LessonID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		}
		return
	}

	h.metrics.RecordCheckoutStarted()
	writeJSON(w, http.StatusOK, created)
}

// VerifySession confirms payment for a completed checkout and records
// the purchase. An unpaid session reports success=false rather than an
// error; the buyer may simply have abandoned checkout.
func (h *CheckoutHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.checkout.VerifySession(r.Context(), req.SessionID)
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, checkout.ErrNotPaid):
			writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		case errors.Is(err, checkout.ErrMissingMetadata):
			writeError(w, http.StatusBadRequest, "Checkout session is missing purchase details")
		default:
			h.logger.Error("verify checkout session", "session_id", req.SessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to verify checkout session")
		}
		return
	}

	h.metrics.RecordPurchase()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
