package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/calbec/lessonmarket/internal/auth"
	"github.com/calbec/lessonmarket/internal/metrics"
	"github.com/calbec/lessonmarket/internal/middleware"
	"github.com/calbec/lessonmarket/internal/model"
)

// identityAdmin is the slice of the identity provider the auth handlers
// use directly, outside the facade: liveness, token introspection, code
// exchange, and account removal.
type identityAdmin interface {
	Health(ctx context.Context) error
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
	AdminDeleteUser(ctx context.Context, userID string) error
	ExchangeCode(ctx context.Context, code string) (*model.Session, error)
}

type profileDeleter interface {
	Delete(ctx context.Context, id string) error
}

type AuthHandler struct {
	facade   *auth.Facade
	identity identityAdmin
	profiles profileDeleter
	metrics  *metrics.Collector
	logger   *slog.Logger
}

func NewAuthHandler(
	facade *auth.Facade,
	identity identityAdmin,
	profiles profileDeleter,
	collector *metrics.Collector,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		facade:   facade,
		identity: identity,
		profiles: profiles,
		metrics:  collector,
		logger:   logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles the password sign-in. Input is validated before any
// network call; a provider that cannot be reached maps to 503, a
// provider rejection to 401 with the provider's message verbatim.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := auth.ValidateCredentials(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.identity.Health(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Authentication service is unavailable, check your connection")
		return
	}

	sess, err := h.facade.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordSignIn("failed")
		if errors.Is(err, auth.ErrServiceUnreachable) {
			writeError(w, http.StatusServiceUnavailable, "Authentication service is unavailable, check your connection")
			return
		}
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.metrics.RecordSignIn("ok")
	setSessionCookies(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{"user": sess.User, "session": sess})
}

// Signup registers a new account. Depending on the provider's confirm
// policy the result is either a pending account or an immediate session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.facade.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Detail)
			return
		}
		if errors.Is(err, auth.ErrServiceUnreachable) {
			writeError(w, http.StatusServiceUnavailable, "Authentication service is unavailable, check your connection")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := "Check your email to confirm your account"
	if res.Session != nil {
		setSessionCookies(w, res.Session)
		message = "Account created"
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    res.User,
		"session": res.Session,
		"message": message,
	})
}

// Logout signs out. Local state and cookies are cleared even when the
// provider call fails; the user asked to leave.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.SignOut(r.Context()); err != nil {
		h.logger.Warn("provider sign-out failed", "error", err)
	}
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// ResetPassword requests a password reset email.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.facade.ResetPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrServiceUnreachable) {
			writeError(w, http.StatusServiceUnavailable, "Authentication service is unavailable, check your connection")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

// DeleteAccount removes the profile row and the identity account for
// the caller, then clears the session.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	user, err := h.identity.GetUser(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	if err := h.profiles.Delete(r.Context(), user.ID); err != nil {
		h.logger.Error("delete profile", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	if err := h.identity.AdminDeleteUser(r.Context(), user.ID); err != nil {
		h.logger.Error("delete identity", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	if err := h.facade.SignOut(r.Context()); err != nil {
		h.logger.Warn("provider sign-out failed", "error", err)
	}
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// GoogleLogin redirects into the provider-hosted OAuth flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.facade.SignInWithGoogle(), http.StatusSeeOther)
}

// Callback finishes the OAuth flow: the provider's code is exchanged for
// a session, then the browser lands on the profile page.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	sess, err := h.identity.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		http.Redirect(w, r, middleware.LoginPath+"?error=oauth", http.StatusSeeOther)
		return
	}

	h.facade.CompleteOAuth(r.Context(), sess)
	setSessionCookies(w, sess)
	http.Redirect(w, r, auth.SignedInPath, http.StatusSeeOther)
}

func setSessionCookies(w http.ResponseWriter, sess *model.Session) {
	maxAge := int(sess.ExpiresIn)
	if maxAge == 0 {
		maxAge = 3600
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    sess.RefreshToken,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
