package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calbec/lessonmarket/internal/auth"
	"github.com/calbec/lessonmarket/internal/checkout"
	"github.com/calbec/lessonmarket/internal/config"
	"github.com/calbec/lessonmarket/internal/datastore"
	"github.com/calbec/lessonmarket/internal/handler"
	"github.com/calbec/lessonmarket/internal/identity"
	"github.com/calbec/lessonmarket/internal/metrics"
	"github.com/calbec/lessonmarket/internal/middleware"
	"github.com/calbec/lessonmarket/internal/payments"
	"github.com/calbec/lessonmarket/internal/profile"
)

// Clients are the external collaborators, built in main and injected so
// tests can point them at fakes.
type Clients struct {
	Identity  *identity.Client
	Datastore *datastore.Client
	Payments  *payments.Client
}

type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	authStore *auth.Store
	facade    *auth.Facade

	authH       *handler.AuthHandler
	checkoutH   *handler.CheckoutHandler
	onboardH    *handler.OnboardingHandler
	webhookH    *handler.WebhookHandler
	lessonH     *handler.LessonHandler
	purchaseH   *handler.PurchaseHandler
	guard       *middleware.Guard
	collector   *metrics.Collector
	registry    *prometheus.Registry
	rateLimiter *middleware.RateLimiter
}

func New(cfg *config.Config, clients Clients, logger *slog.Logger) *Server {
	profiles := datastore.NewProfileStore(clients.Datastore)
	lessons := datastore.NewLessonStore(clients.Datastore)
	purchases := datastore.NewPurchaseStore(clients.Datastore)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	reconciler := profile.NewReconciler(profiles)
	authStore := auth.NewStore()
	facade := auth.NewFacade(clients.Identity, authStore, reconciler, cfg.BaseURL, logger.With("component", "auth"))

	orchestrator := checkout.NewOrchestrator(clients.Payments, lessons, profiles, purchases, logger.With("component", "checkout"))

	var webhookH *handler.WebhookHandler
	if cfg.StripeWebhookSecret != "" {
		webhookH = handler.NewWebhookHandler(clients.Payments, profiles, collector, logger.With("component", "webhook"))
	}

	return &Server{
		cfg:         cfg,
		logger:      logger,
		authStore:   authStore,
		facade:      facade,
		authH:       handler.NewAuthHandler(facade, clients.Identity, profiles, collector, logger.With("component", "auth")),
		checkoutH:   handler.NewCheckoutHandler(orchestrator, facade, collector, logger.With("component", "checkout")),
		onboardH:    handler.NewOnboardingHandler(clients.Payments, profiles, facade, logger.With("component", "onboarding")),
		webhookH:    webhookH,
		lessonH:     handler.NewLessonHandler(lessons, logger.With("component", "lessons")),
		purchaseH:   handler.NewPurchaseHandler(purchases, facade, logger.With("component", "purchases")),
		guard:       middleware.NewGuard(cfg.GuardValidateTokens, cfg.IdentityJWTSecret),
		collector:   collector,
		registry:    registry,
		rateLimiter: middleware.NewRateLimiter(),
	}
}

// AuthStore exposes the session store so main can attach subscribers.
func (s *Server) AuthStore() *auth.Store {
	return s.authStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /health", s.healthCheck)
	mux.Handle("GET /metrics", metrics.Handler(s.registry))

	// Credential endpoints are rate-limited per client IP.
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("POST /api/auth/signup", s.rateLimited(s.authH.Signup))
	mux.HandleFunc("POST /api/auth/reset-password", s.rateLimited(s.authH.ResetPassword))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("POST /api/auth/delete-account", s.authH.DeleteAccount)
	mux.HandleFunc("GET /api/auth/google", s.authH.GoogleLogin)
	mux.HandleFunc("GET /api/auth/callback", s.authH.Callback)

	mux.HandleFunc("POST /api/stripe/checkout_session", s.checkoutH.CreateCheckoutSession)
	mux.HandleFunc("POST /api/stripe/verify-session", s.checkoutH.VerifySession)
	mux.HandleFunc("POST /api/stripe/onboarding/create-account", s.onboardH.CreateAccount)
	mux.HandleFunc("POST /api/stripe/onboarding/account-session", s.onboardH.AccountSession)
	mux.HandleFunc("POST /api/stripe/payouts", s.onboardH.ConfigurePayouts)

	if s.webhookH != nil {
		mux.HandleFunc("POST /api/stripe/webhook", s.webhookH.Handle)
	}

	mux.HandleFunc("GET /api/lessons", s.lessonH.List)
	mux.HandleFunc("GET /api/lessons/{id}", s.lessonH.Get)
	mux.HandleFunc("GET /api/purchases", s.purchaseH.List)

	var h http.Handler = mux
	h = s.guard.Middleware(h)
	h = middleware.Metrics(s.collector)(h)
	h = middleware.Recover(s.logger)(h)
	h = middleware.RequestLogger(s.logger)(h)
	return h
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"service": "lessonmarket"})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
