package model

import "time"

type Profile struct {
	ID                       string    `json:"id"`
	Email                    string    `json:"email"`
	FullName                 string    `json:"full_name"`
	AvatarURL                *string   `json:"avatar_url"`
	Bio                      *string   `json:"bio"`
	StripeAccountID          *string   `json:"stripe_account_id"`
	StripeOnboardingComplete bool      `json:"stripe_onboarding_complete"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
