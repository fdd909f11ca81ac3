package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calbec/lessonmarket/internal/model"
)

// Payout schedule defaults applied when the caller omits a field.
const (
	defaultPayoutInterval = "weekly"
	defaultPayoutDelay    = 7
	defaultPayoutAnchor   = "monday"
)

type connectClient interface {
	CreateConnectedAccount() (string, error)
	CreateAccountSession(accountID string) (string, error)
	ConfigurePayoutSchedule(accountID, interval string, delayDays int64, weeklyAnchor string) error
}

type onboardingProfiles interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	SetStripeAccount(ctx context.Context, id, accountID string) error
}

// OnboardingHandler manages the creator side of payments: connected
// account creation, embedded onboarding sessions, and payout schedules.
type OnboardingHandler struct {
	payments connectClient
	profiles onboardingProfiles
	sessions sessionSource
	logger   *slog.Logger
}

func NewOnboardingHandler(payments connectClient, profiles onboardingProfiles, sessions sessionSource, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		payments: payments,
		profiles: profiles,
		sessions: sessions,
		logger:   logger,
	}
}

// currentProfile resolves the signed-in caller's profile row.
func (h *OnboardingHandler) currentProfile(w http.ResponseWriter, r *http.Request) *model.Profile {
	sess := h.sessions.Session()
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Not signed in")
		return nil
	}
	profile, err := h.profiles.GetByID(r.Context(), sess.User.ID)
	if err != nil {
		h.logger.Error("load profile", "user_id", sess.User.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return nil
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return nil
	}
	return profile
}

// CreateAccount provisions a connected account for the caller and saves
// it on their profile. Calling again with an account already provisioned
// returns the existing one instead of creating a duplicate.
func (h *OnboardingHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	profile := h.currentProfile(w, r)
	if profile == nil {
		return
	}

	if profile.StripeAccountID != nil && *profile.StripeAccountID != "" {
		writeJSON(w, http.StatusOK, map[string]string{"account": *profile.StripeAccountID})
		return
	}

	accountID, err := h.payments.CreateConnectedAccount()
	if err != nil {
		h.logger.Error("create connected account", "user_id", profile.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	if err := h.profiles.SetStripeAccount(r.Context(), profile.ID, accountID); err != nil {
		h.logger.Error("save connected account", "user_id", profile.ID, "account", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"account": accountID})
}

// AccountSession mints a client secret for the embedded onboarding
// component. The account defaults to the caller's own.
func (h *OnboardingHandler) AccountSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Account == "" {
		profile := h.currentProfile(w, r)
		if profile == nil {
			return
		}
		if profile.StripeAccountID == nil || *profile.StripeAccountID == "" {
			writeError(w, http.StatusBadRequest, "No connected account, create one first")
			return
		}
		req.Account = *profile.StripeAccountID
	}

	secret, err := h.payments.CreateAccountSession(req.Account)
	if err != nil {
		h.logger.Error("create account session", "account", req.Account, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create account session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"client_secret": secret})
}

// ConfigurePayouts sets the payout schedule on the caller's connected
// account. Omitted fields fall back to weekly payouts on Monday with a
// seven day delay.
func (h *OnboardingHandler) ConfigurePayouts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interval     string `json:"interval"`
		DelayDays    int64  `json:"delay_days"`
		WeeklyAnchor string `json:"weekly_anchor"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Interval == "" {
		req.Interval = defaultPayoutInterval
	}
	if req.DelayDays == 0 {
		req.DelayDays = defaultPayoutDelay
	}
	if req.WeeklyAnchor == "" {
		req.WeeklyAnchor = defaultPayoutAnchor
	}

	switch req.Interval {
	case "daily", "weekly", "monthly", "manual":
	default:
		writeError(w, http.StatusBadRequest, "Interval must be one of daily, weekly, monthly, manual")
		return
	}

	profile := h.currentProfile(w, r)
	if profile == nil {
		return
	}
	if profile.StripeAccountID == nil || *profile.StripeAccountID == "" {
		writeError(w, http.StatusBadRequest, "No connected account, create one first")
		return
	}

	if err := h.payments.ConfigurePayoutSchedule(*profile.StripeAccountID, req.Interval, req.DelayDays, req.WeeklyAnchor); err != nil {
		h.logger.Error("configure payouts", "account", *profile.StripeAccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update payout schedule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Payout schedule updated"})
}
