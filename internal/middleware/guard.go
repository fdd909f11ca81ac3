package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Session cookie names set by the auth handlers and read by the guard.
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// LoginPath is where unauthenticated access to protected paths lands.
const LoginPath = "/auth/login"

type Class int

const (
	ClassPublic Class = iota
	ClassProtected
)

// publicPrefixes is the fixed allow-list. Home is an exact match; the
// rest are prefixes. The auth surface itself must stay reachable while
// signed out, the lesson catalog is browsable anonymously, and the
// payments webhook authenticates by signature, not by session.
var publicPrefixes = []string{
	"/auth/",
	"/api/auth/",
	"/api/lessons",
	"/api/stripe/webhook",
	"/lessons",
	"/static/",
	"/favicon.ico",
	"/health",
	"/metrics",
}

// Guard classifies paths as public or protected and redirects
// unauthenticated access on protected paths. Stateless; every request is
// judged independently.
type Guard struct {
	validate bool
	secret   []byte
}

// NewGuard returns the minimal cookie-presence guard. When validate is
// true the guard additionally verifies the access token's signature and
// expiry locally before forwarding.
func NewGuard(validate bool, jwtSecret string) *Guard {
	return &Guard{validate: validate, secret: []byte(jwtSecret)}
}

// Classify applies the fixed allow-list.
func (g *Guard) Classify(path string) Class {
	if path == "/" {
		return ClassPublic
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ClassPublic
		}
	}
	return ClassProtected
}

// Middleware forwards public paths unconditionally and protected paths
// only when a session cookie is present (and, in the strict variant,
// carries a verifiable unexpired token).
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Classify(r.URL.Path) == ClassPublic {
			next.ServeHTTP(w, r)
			return
		}

		access, accessErr := r.Cookie(AccessTokenCookie)
		refresh, refreshErr := r.Cookie(RefreshTokenCookie)
		hasAccess := accessErr == nil && access.Value != ""
		hasRefresh := refreshErr == nil && refresh.Value != ""
		if !hasAccess && !hasRefresh {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		if g.validate {
			if !hasAccess || g.verifyToken(access.Value) != nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// verifyToken checks the access token's HMAC signature and expiry against
// the identity provider's shared secret.
func (g *Guard) verifyToken(tokenStr string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
