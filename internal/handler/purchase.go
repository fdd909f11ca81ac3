package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calbec/lessonmarket/internal/model"
)

type purchaseReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.Purchase, error)
}

type PurchaseHandler struct {
	purchases purchaseReader
	sessions  sessionSource
	logger    *slog.Logger
}

func NewPurchaseHandler(purchases purchaseReader, sessions sessionSource, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, sessions: sessions, logger: logger}
}

// List returns the caller's purchases.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Session()
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	purchases, err := h.purchases.ListByUser(r.Context(), sess.User.ID)
	if err != nil {
		h.logger.Error("list purchases", "user_id", sess.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load purchases")
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}
