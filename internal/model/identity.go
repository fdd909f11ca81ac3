package model

import "time"

// Identity is the authenticated subject as reported by the identity provider.
type Identity struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at"`
}

type UserMetadata struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Session is the identity provider's token pair. It is treated as immutable
// and replaced wholesale on change.
type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         Identity `json:"user"`
}

// SignupResult is what the provider returns from a registration call. Session
// is nil when the provider requires email confirmation before issuing tokens.
type SignupResult struct {
	User    Identity `json:"user"`
	Session *Session `json:"session"`
}
