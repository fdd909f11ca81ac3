// Package payments wraps the hosted payments provider. The provider owns
// the payment ledger; this process only creates checkout sessions, reads
// them back, and manages connected accounts for sellers.
package payments

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountsession"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CheckoutParams describes one hosted-checkout session for a single
// lesson. Metadata is attached to both the session and the line item's
// product so it survives either read path later.
type CheckoutParams struct {
	ProductName string
	UnitAmount  int64 // integer cents
	Metadata    map[string]string

	// ClientReferenceID correlates the session with the buying user in
	// the provider's dashboard.
	ClientReferenceID string

	// ConnectedAccountID, when set, routes the funds to the seller's
	// connected account minus ApplicationFee.
	ConnectedAccountID string
	ApplicationFee     int64
}

// CheckoutSession is the provider-owned session as this application sees
// it. Never mutated locally; created once and read back on return from
// hosted checkout.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	AmountTotal     int64
	Metadata        map[string]string
	ProductMetadata map[string]string
}

// CreateCheckoutSession creates a hosted checkout session and returns its
// id and redirect URL.
func (c *Client) CreateCheckoutSession(p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:     stripe.String(p.ProductName),
						Metadata: p.Metadata,
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}
	params.Metadata = p.Metadata
	if p.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(p.ClientReferenceID)
	}
	if p.ConnectedAccountID != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(p.ApplicationFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(p.ConnectedAccountID),
			},
		}
	}

	sess, err := checksession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Metadata:      sess.Metadata,
	}, nil
}

// GetCheckoutSession retrieves a checkout session by id, expanding line
// items so product metadata is available as a fallback.
func (c *Client) GetCheckoutSession(id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items.data.price.product")

	sess, err := checksession.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	out := &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Metadata:      sess.Metadata,
	}
	if sess.LineItems != nil && len(sess.LineItems.Data) > 0 {
		item := sess.LineItems.Data[0]
		if item.Price != nil && item.Price.Product != nil {
			out.ProductMetadata = item.Price.Product.Metadata
		}
	}
	return out, nil
}

// CreateConnectedAccount creates a seller account with application-owned
// fees, losses, and requirement collection, and no provider dashboard.
func (c *Client) CreateConnectedAccount() (string, error) {
	params := &stripe.AccountParams{
		Country: stripe.String("US"),
		Controller: &stripe.AccountControllerParams{
			StripeDashboard: &stripe.AccountControllerStripeDashboardParams{
				Type: stripe.String("none"),
			},
			Fees: &stripe.AccountControllerFeesParams{
				Payer: stripe.String("application"),
			},
			Losses: &stripe.AccountControllerLossesParams{
				Payments: stripe.String("application"),
			},
			RequirementCollection: stripe.String("application"),
		},
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return acct.ID, nil
}

// CreateAccountSession opens an onboarding session for a connected
// account and returns the client secret for the hosted onboarding UI.
func (c *Client) CreateAccountSession(accountID string) (string, error) {
	params := &stripe.AccountSessionParams{
		Account: stripe.String(accountID),
		Components: &stripe.AccountSessionComponentsParams{
			AccountOnboarding: &stripe.AccountSessionComponentsAccountOnboardingParams{
				Enabled: stripe.Bool(true),
			},
		},
	}
	sess, err := accountsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create account session: %w", err)
	}
	return sess.ClientSecret, nil
}

// ConfigurePayoutSchedule updates a connected account's payout schedule.
func (c *Client) ConfigurePayoutSchedule(accountID, interval string, delayDays int64, weeklyAnchor string) error {
	schedule := &stripe.AccountSettingsPayoutsScheduleParams{
		Interval: stripe.String(interval),
	}
	// The provider rejects delay_days on manual schedules and
	// weekly_anchor on anything but weekly ones.
	if interval != "manual" {
		schedule.DelayDays = stripe.Int64(delayDays)
	}
	if interval == "weekly" {
		schedule.WeeklyAnchor = stripe.String(weeklyAnchor)
	}
	params := &stripe.AccountParams{
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: schedule,
			},
		},
	}
	if _, err := account.Update(accountID, params); err != nil {
		return fmt.Errorf("configure payout schedule: %w", err)
	}
	return nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
