// Package identity is the HTTP client for the hosted identity provider.
// The provider owns the session lifecycle (token issuance, refresh,
// revocation); this client only relays calls and decodes responses.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/calbec/lessonmarket/internal/model"
)

// ErrUnreachable marks connectivity failures, distinct from provider
// errors carrying an HTTP status. Callers map it to a user-facing
// "service unreachable" message.
var ErrUnreachable = errors.New("identity service unreachable")

// Error is a non-success response from the provider. The message is
// surfaced to callers verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider error (status %d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL, anonKey, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignInWithPassword performs the password grant and returns the new
// session. The provider's error message is passed through unmodified.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp registers a new user. The returned session is nil when the
// provider requires email confirmation first.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*model.SignupResult, error) {
	path := "/auth/v1/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	body := map[string]string{"email": email, "password": password}

	// The provider returns either {user, session} or a bare user object
	// depending on whether confirmation is pending.
	var raw struct {
		model.Identity
		User    *model.Identity `json:"user"`
		Session *model.Session  `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, path, c.anonKey, body, &raw); err != nil {
		return nil, err
	}
	res := &model.SignupResult{Session: raw.Session}
	if raw.User != nil {
		res.User = *raw.User
	} else {
		res.User = raw.Identity
	}
	return res, nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// ResetPassword asks the provider to send a password-reset email.
func (c *Client) ResetPassword(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, c.anonKey, map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user behind the token.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{"password": newPassword}, nil)
}

// AuthorizeURL returns the provider-hosted OAuth entry point. No local
// state changes until the provider redirects back with a code.
func (c *Client) AuthorizeURL(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ExchangeCode trades an OAuth callback code for a session.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	body := map[string]string{"auth_code": code}
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", c.anonKey, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetUser returns the identity behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	var ident model.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// AdminDeleteUser removes a user. Requires the service key.
func (c *Client) AdminDeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), c.serviceKey, nil, nil)
}

// Health probes the provider. Used to distinguish "provider rejected the
// call" from "provider is down" before auth operations.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/v1/health", c.anonKey, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	// The provider uses a few error shapes; take the first message found.
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorField       string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &payload)

	msg := payload.Msg
	for _, candidate := range []string{payload.Message, payload.ErrorDescription, payload.ErrorField} {
		if msg == "" {
			msg = candidate
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
