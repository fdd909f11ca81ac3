package datastore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/calbec/lessonmarket/internal/model"
)

// PurchaseStore is the append-only record of verified checkouts. Nothing
// here enforces uniqueness on stripe_session_id; re-verifying an already
// recorded session writes a second row unless the table itself carries a
// constraint.
type PurchaseStore struct {
	client *Client
}

func NewPurchaseStore(client *Client) *PurchaseStore {
	return &PurchaseStore{client: client}
}

// Insert appends one purchase row.
func (s *PurchaseStore) Insert(ctx context.Context, p *model.Purchase) error {
	p.CreatedAt = time.Now().UTC()
	if err := s.client.insertRow(ctx, "purchases", p, nil); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// ListByUser returns the purchases made by a user, newest first.
func (s *PurchaseStore) ListByUser(ctx context.Context, userID string) ([]model.Purchase, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", eq(userID))
	query.Set("order", "created_at.desc")

	var rows []model.Purchase
	if err := s.client.selectRows(ctx, "purchases", query, &rows); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return rows, nil
}
