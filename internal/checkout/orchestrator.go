// Package checkout turns a "purchase this lesson" action into a hosted
// checkout session, and on return verifies payment and records the
// purchase. The two phases are stateless between each other; the only
// shared state is the provider-owned session addressed by id.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/calbec/lessonmarket/internal/model"
	"github.com/calbec/lessonmarket/internal/payments"
)

var (
	// ErrNotPaid is terminal for a verification call: not paid means not
	// recorded. Re-verifying is only useful if the provider-side status
	// has since changed.
	ErrNotPaid = errors.New("payment not completed")

	// ErrMissingMetadata means the session carries no lesson/user
	// identifiers; recording a purchase with null identifiers is worse
	// than failing.
	ErrMissingMetadata = errors.New("checkout session missing lesson_id/user_id metadata")

	ErrLessonNotFound      = errors.New("lesson not found")
	ErrCreatorNotOnboarded = errors.New("creator has not completed payment onboarding")
)

// ValidationError is a bad-input failure caught before any provider call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PaymentsProvider is the provider surface the orchestrator needs.
type PaymentsProvider interface {
	CreateCheckoutSession(p payments.CheckoutParams) (*payments.CheckoutSession, error)
	GetCheckoutSession(id string) (*payments.CheckoutSession, error)
}

type lessonStore interface {
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

type purchaseStore interface {
	Insert(ctx context.Context, p *model.Purchase) error
}

type Orchestrator struct {
	provider  PaymentsProvider
	lessons   lessonStore
	profiles  profileStore
	purchases purchaseStore
	logger    *slog.Logger
}

func NewOrchestrator(provider PaymentsProvider, lessons lessonStore, profiles profileStore, purchases purchaseStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		lessons:   lessons,
		profiles:  profiles,
		purchases: purchases,
		logger:    logger,
	}
}

// Created is the phase A result handed back to the client, which then
// redirects into the provider's hosted checkout.
type Created struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateSession is phase A. Price is decimal dollars; the line item is
// built in integer cents, rounded (not truncated) so repeating-fraction
// prices never systematically underbill. Provider errors propagate
// unmodified and are never retried: a silent retry risks a duplicate
// session and a duplicate charge.
func (o *Orchestrator) CreateSession(ctx context.Context, lessonID string, price float64, userID string) (*Created, error) {
	if lessonID == "" || userID == "" || price <= 0 {
		return nil, &ValidationError{Message: "Missing required fields: lessonId, price, userId"}
	}

	lesson, err := o.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("look up lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
	}

	creator, err := o.profiles.GetByID(ctx, lesson.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("look up creator: %w", err)
	}
	if creator == nil || creator.StripeAccountID == nil || *creator.StripeAccountID == "" {
		return nil, ErrCreatorNotOnboarded
	}

	unitAmount := int64(math.Round(price * 100))
	metadata := map[string]string{
		"lesson_id": lessonID,
		"user_id":   userID,
	}

	sess, err := o.provider.CreateCheckoutSession(payments.CheckoutParams{
		ProductName:        lesson.Title,
		UnitAmount:         unitAmount,
		Metadata:           metadata,
		ClientReferenceID:  userID,
		ConnectedAccountID: *creator.StripeAccountID,
		ApplicationFee:     applicationFee(unitAmount),
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("checkout session created",
		"session_id", sess.ID, "lesson_id", lessonID, "user_id", userID, "unit_amount", unitAmount)
	return &Created{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifySession is phase B, invoked when the user returns from hosted
// checkout. Reports success only after the purchase row is written; a
// datastore failure after a captured payment surfaces as failure with no
// compensating action, and a retried verification of an already recorded
// session writes a second row. Both are documented limitations.
func (o *Orchestrator) VerifySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &ValidationError{Message: "Missing session_id"}
	}

	sess, err := o.provider.GetCheckoutSession(sessionID)
	if err != nil {
		return err
	}
	if sess.PaymentStatus != "paid" {
		return fmt.Errorf("%w: status %q", ErrNotPaid, sess.PaymentStatus)
	}

	lessonID, userID := extractMetadata(sess)
	if lessonID == "" || userID == "" {
		return ErrMissingMetadata
	}

	purchase := &model.Purchase{
		LessonID:        lessonID,
		UserID:          userID,
		Amount:          float64(sess.AmountTotal) / 100,
		StripeSessionID: sessionID,
	}
	if err := o.purchases.Insert(ctx, purchase); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	o.logger.Info("purchase recorded",
		"session_id", sessionID, "lesson_id", lessonID, "user_id", userID, "amount", purchase.Amount)
	return nil
}

// extractMetadata reads the identifiers from session metadata, falling
// back to the line item's product metadata when absent.
func extractMetadata(sess *payments.CheckoutSession) (lessonID, userID string) {
	lessonID = sess.Metadata["lesson_id"]
	userID = sess.Metadata["user_id"]
	if lessonID == "" {
		lessonID = sess.ProductMetadata["lesson_id"]
	}
	if userID == "" {
		userID = sess.ProductMetadata["user_id"]
	}
	return lessonID, userID
}

// applicationFee is the platform's 10% cut, truncated to whole cents.
func applicationFee(unitAmount int64) int64 {
	return int64(float64(unitAmount) * 0.10)
}
