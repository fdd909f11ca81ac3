// Package profile ensures exactly one profile row exists per
// authenticated identity, keyed primarily by subject id and secondarily
// by email.
package profile

import (
	"context"
	"fmt"

	"github.com/calbec/lessonmarket/internal/model"
)

// Store is the slice of the profile table the reconciler needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Insert(ctx context.Context, p *model.Profile) (*model.Profile, error)
	UpdateID(ctx context.Context, oldID, newID string) (*model.Profile, error)
}

type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile resolves an authenticated identity to its profile row with a
// three-branch decision: no-op when a row already carries the subject id,
// repoint when a row carries the same email under a different id
// (provider/account-linking drift), create otherwise. At most one write
// per call; a second call with the same identity takes the no-op branch.
func (r *Reconciler) Reconcile(ctx context.Context, ident model.Identity) (*model.Profile, error) {
	existing, err := r.store.GetByID(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile lookup by id: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	byEmail, err := r.store.GetByEmail(ctx, ident.Email)
	if err != nil {
		return nil, fmt.Errorf("reconcile lookup by email: %w", err)
	}
	if byEmail != nil && byEmail.ID != ident.ID {
		repointed, err := r.store.UpdateID(ctx, byEmail.ID, ident.ID)
		if err != nil {
			return nil, fmt.Errorf("reconcile repoint: %w", err)
		}
		return repointed, nil
	}

	seeded := &model.Profile{
		ID:                       ident.ID,
		Email:                    ident.Email,
		FullName:                 ident.UserMetadata.FullName,
		StripeOnboardingComplete: false,
	}
	if ident.UserMetadata.AvatarURL != "" {
		avatar := ident.UserMetadata.AvatarURL
		seeded.AvatarURL = &avatar
	}
	created, err := r.store.Insert(ctx, seeded)
	if err != nil {
		return nil, fmt.Errorf("reconcile create: %w", err)
	}
	return created, nil
}
