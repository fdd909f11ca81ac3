package datastore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/calbec/lessonmarket/internal/model"
)

type ProfileStore struct {
	client *Client
}

func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// GetByID returns the profile with the given id, or nil if none exists.
func (s *ProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.getOne(ctx, "id", id)
}

// GetByEmail returns the profile with the given email, or nil if none exists.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return s.getOne(ctx, "email", email)
}

func (s *ProfileStore) getOne(ctx context.Context, column, value string) (*model.Profile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set(column, eq(value))
	query.Set("limit", "1")

	var rows []model.Profile
	if err := s.client.selectRows(ctx, "profiles", query, &rows); err != nil {
		return nil, fmt.Errorf("get profile by %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Insert stores a new profile and returns the stored row.
func (s *ProfileStore) Insert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	var rows []model.Profile
	if err := s.client.insertRow(ctx, "profiles", p, &rows); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert profile: no row returned")
	}
	return &rows[0], nil
}

// UpdateID repoints the row keyed by oldID to newID. Used when the same
// email re-authenticates under a different provider subject id.
func (s *ProfileStore) UpdateID(ctx context.Context, oldID, newID string) (*model.Profile, error) {
	query := url.Values{}
	query.Set("id", eq(oldID))

	fields := map[string]any{
		"id":         newID,
		"updated_at": time.Now().UTC(),
	}
	var rows []model.Profile
	if err := s.client.updateRows(ctx, "profiles", query, fields, &rows); err != nil {
		return nil, fmt.Errorf("repoint profile id: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("repoint profile id: no row matched %s", oldID)
	}
	return &rows[0], nil
}

// SetStripeAccount records a newly created connected account on a profile.
func (s *ProfileStore) SetStripeAccount(ctx context.Context, id, accountID string) error {
	query := url.Values{}
	query.Set("id", eq(id))

	fields := map[string]any{
		"stripe_account_id": accountID,
		"updated_at":        time.Now().UTC(),
	}
	if err := s.client.updateRows(ctx, "profiles", query, fields, nil); err != nil {
		return fmt.Errorf("set stripe account: %w", err)
	}
	return nil
}

// CompleteOnboardingByAccount flips stripe_onboarding_complete for the
// profile owning the given connected account.
func (s *ProfileStore) CompleteOnboardingByAccount(ctx context.Context, accountID string) error {
	query := url.Values{}
	query.Set("stripe_account_id", eq(accountID))

	fields := map[string]any{
		"stripe_onboarding_complete": true,
		"updated_at":                 time.Now().UTC(),
	}
	if err := s.client.updateRows(ctx, "profiles", query, fields, nil); err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	return nil
}

// Delete removes the profile row. Only used by account deletion.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", eq(id))

	if err := s.client.deleteRows(ctx, "profiles", query); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
