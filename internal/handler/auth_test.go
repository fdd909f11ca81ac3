package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calbec/lessonmarket/internal/auth"
	"github.com/calbec/lessonmarket/internal/identity"
	"github.com/calbec/lessonmarket/internal/metrics"
	"github.com/calbec/lessonmarket/internal/middleware"
	"github.com/calbec/lessonmarket/internal/model"
)

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

type fakeProvider struct {
	session  *model.Session
	signup   *model.SignupResult
	err      error
	signIns  int
	signOuts int
	resets   int
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	p.signIns++
	if p.err != nil {
		return nil, p.err
	}
	return p.session, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, redirectTo string) (*model.SignupResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.signup, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	p.signOuts++
	return p.err
}

func (p *fakeProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	p.resets++
	return p.err
}

func (p *fakeProvider) AuthorizeURL(provider, redirectTo string) string {
	return "https://id.example.com/authorize?provider=" + provider
}

type fakeReconciler struct{}

func (fakeReconciler) Reconcile(ctx context.Context, ident model.Identity) (*model.Profile, error) {
	return &model.Profile{ID: ident.ID, Email: ident.Email}, nil
}

type fakeIdentityAdmin struct {
	healthErr  error
	user       *model.Identity
	userErr    error
	deletedIDs []string
	deleteErr  error
	session    *model.Session
	codeErr    error
}

func (f *fakeIdentityAdmin) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeIdentityAdmin) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.user, nil
}

func (f *fakeIdentityAdmin) AdminDeleteUser(ctx context.Context, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, userID)
	return nil
}

func (f *fakeIdentityAdmin) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.session, nil
}

type fakeProfileDeleter struct {
	deleted []string
	err     error
}

func (f *fakeProfileDeleter) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func testSession() *model.Session {
	return &model.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
		User:         model.Identity{ID: "user-1", Email: "alice@example.com"},
	}
}

func newAuthHandler(provider *fakeProvider, admin *fakeIdentityAdmin, deleter *fakeProfileDeleter) (*AuthHandler, *auth.Store) {
	store := auth.NewStore()
	facade := auth.NewFacade(provider, store, fakeReconciler{}, "https://app.example.com", testLogger())
	return NewAuthHandler(facade, admin, deleter, testMetrics(), testLogger()), store
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestLoginSuccess(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	h, store := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "alice@example.com") {
		t.Errorf("response missing user: %s", rec.Body.String())
	}
	// The session rides in the body alongside the cookies.
	if !strings.Contains(rec.Body.String(), `"session"`) || !strings.Contains(rec.Body.String(), `"access_token":"access-token"`) {
		t.Errorf("response missing session: %s", rec.Body.String())
	}
	if c := sessionCookie(t, rec, middleware.AccessTokenCookie); c.Value != "access-token" {
		t.Errorf("access cookie = %q", c.Value)
	}
	if c := sessionCookie(t, rec, middleware.RefreshTokenCookie); c.Value != "refresh-token" {
		t.Errorf("refresh cookie = %q", c.Value)
	}
	if store.Current() == nil {
		t.Error("session not installed")
	}
}

func TestLoginValidationSkipsProvider(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	h, _ := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","password":"password123"}`},
		{"short password", `{"email":"alice@example.com","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest("POST", "/api/auth/login", tt.body)
			rec := httptest.NewRecorder()
			h.Login(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
	if provider.signIns != 0 {
		t.Errorf("provider called %d times on invalid input", provider.signIns)
	}
}

func TestLoginProviderUnavailable(t *testing.T) {
	h, _ := newAuthHandler(&fakeProvider{}, &fakeIdentityAdmin{healthErr: errors.New("down")}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestLoginProviderRejection(t *testing.T) {
	provider := &fakeProvider{err: &identity.Error{Status: 400, Message: "Invalid login credentials"}}
	h, _ := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	// Provider message surfaces verbatim.
	if !strings.Contains(rec.Body.String(), "Invalid login credentials") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSignupPendingConfirmation(t *testing.T) {
	provider := &fakeProvider{signup: &model.SignupResult{User: model.Identity{ID: "user-1", Email: "alice@example.com"}}}
	h, store := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/signup", `{"email":"alice@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if !strings.Contains(rec.Body.String(), "Check your email") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"session":null`) {
		t.Errorf("pending signup should report a null session: %s", rec.Body.String())
	}
	if store.Current() != nil {
		t.Error("no session should be installed for a pending signup")
	}
}

func TestSignupAutoConfirmSetsCookies(t *testing.T) {
	sess := testSession()
	provider := &fakeProvider{signup: &model.SignupResult{User: sess.User, Session: sess}}
	h, store := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/signup", `{"email":"alice@example.com","password":"password123"}`)
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	sessionCookie(t, rec, middleware.AccessTokenCookie)
	if store.Current() == nil {
		t.Error("session should be installed when the provider auto-confirms")
	}
}

func TestResetPasswordSendsEmail(t *testing.T) {
	provider := &fakeProvider{}
	h, _ := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/reset-password", `{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if provider.resets != 1 {
		t.Errorf("provider resets = %d, want 1", provider.resets)
	}
}

func TestResetPasswordProviderUnreachable(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("%w: connection refused", identity.ErrUnreachable)}
	h, _ := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := jsonRequest("POST", "/api/auth/reset-password", `{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d, body %s", rec.Code, http.StatusServiceUnavailable, rec.Body.String())
	}
}

func TestPostRejectsNonJSONBody(t *testing.T) {
	h, _ := newAuthHandler(&fakeProvider{session: testSession()}, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"password123"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
}

func TestLogoutClearsEvenWhenProviderFails(t *testing.T) {
	provider := &fakeProvider{session: testSession()}
	h, store := newAuthHandler(provider, &fakeIdentityAdmin{}, &fakeProfileDeleter{})
	store.Set(testSession())
	provider.err = errors.New("provider down")

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.Current() != nil {
		t.Error("local session should be cleared despite provider error")
	}
	if c := sessionCookie(t, rec, middleware.AccessTokenCookie); c.MaxAge != -1 {
		t.Errorf("access cookie MaxAge = %d, want -1", c.MaxAge)
	}
}

func TestDeleteAccount(t *testing.T) {
	admin := &fakeIdentityAdmin{user: &model.Identity{ID: "user-1", Email: "alice@example.com"}}
	deleter := &fakeProfileDeleter{}
	h, _ := newAuthHandler(&fakeProvider{}, admin, deleter)

	req := httptest.NewRequest("POST", "/api/auth/delete-account", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "access-token"})
	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "user-1" {
		t.Errorf("profile deletes = %v, want [user-1]", deleter.deleted)
	}
	if len(admin.deletedIDs) != 1 || admin.deletedIDs[0] != "user-1" {
		t.Errorf("identity deletes = %v, want [user-1]", admin.deletedIDs)
	}
}

func TestDeleteAccountRequiresSession(t *testing.T) {
	h, _ := newAuthHandler(&fakeProvider{}, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := httptest.NewRequest("POST", "/api/auth/delete-account", nil)
	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCallbackExchangesCode(t *testing.T) {
	sess := testSession()
	admin := &fakeIdentityAdmin{session: sess}
	h, store := newAuthHandler(&fakeProvider{}, admin, &fakeProfileDeleter{})

	req := httptest.NewRequest("GET", "/api/auth/callback?code=oauth-code", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != auth.SignedInPath {
		t.Errorf("Location = %q, want %q", loc, auth.SignedInPath)
	}
	if store.Current() == nil {
		t.Error("session not installed after code exchange")
	}
}

func TestCallbackMissingCode(t *testing.T) {
	h, _ := newAuthHandler(&fakeProvider{}, &fakeIdentityAdmin{}, &fakeProfileDeleter{})

	req := httptest.NewRequest("GET", "/api/auth/callback", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != middleware.LoginPath {
		t.Errorf("Location = %q, want %q", loc, middleware.LoginPath)
	}
}
