package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calbec/lessonmarket/internal/auth"
	"github.com/calbec/lessonmarket/internal/config"
	"github.com/calbec/lessonmarket/internal/datastore"
	"github.com/calbec/lessonmarket/internal/identity"
	"github.com/calbec/lessonmarket/internal/logging"
	"github.com/calbec/lessonmarket/internal/payments"
	"github.com/calbec/lessonmarket/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info").Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	clients := server.Clients{
		Identity:  identity.NewClient(cfg.IdentityURL, cfg.IdentityAnonKey, cfg.IdentityServiceKey),
		Datastore: datastore.NewClient(cfg.DatastoreURL, cfg.DatastoreServiceKey),
		Payments: payments.NewClient(payments.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     cfg.BaseURL + "/lessons?canceled=true",
		}),
	}

	srv := server.New(cfg, clients, logger)

	// Log session transitions so sign-in and sign-out show up in one
	// place regardless of which call site caused them.
	unsubscribe := auth.ReactToTransitions(srv.AuthStore(), func(target string) {
		logger.Info("session transition", "target", target)
	})
	defer unsubscribe()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("lessonmarket starting", "addr", ":"+cfg.Port, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
