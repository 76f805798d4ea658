package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"membership-api/internal/billing"
	"membership-api/internal/config"
	"membership-api/internal/database"
	"membership-api/internal/models"
	"membership-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"gorm.io/gorm"
)

// Checkout modes mirrored into the result for callers and tests
const (
	CheckoutModeSubscription = "subscription"
	CheckoutModePayment      = "payment"
)

// CheckoutOptions is the options bag accepted by the checkout endpoint
type CheckoutOptions struct {
	CreateAccount bool `json:"create_account"`
	SendInvite    bool `json:"send_invite"`
	CheckExisting bool `json:"check_existing"`
}

// DefaultCheckoutOptions matches the behavior callers get when the
// options bag is omitted.
func DefaultCheckoutOptions() CheckoutOptions {
	return CheckoutOptions{
		CreateAccount: true,
		SendInvite:    true,
		CheckExisting: true,
	}
}

// CheckoutRequest carries the subscriber identity for a checkout attempt
type CheckoutRequest struct {
	Email        string
	Name         string
	Phone        string
	RestaurantID string
	Options      CheckoutOptions
}

// CheckoutResult is either a chargeable checkout URL or the
// already-a-member redirect variant. AlreadyMember is not an error.
type CheckoutResult struct {
	AlreadyMember bool
	RedirectURL   string
	CheckoutURL   string
	Mode          string
	AmountCents   int64
}

// CheckoutService decides new-vs-renewing subscriber flow and builds the
// Stripe Checkout session.
type CheckoutService struct {
	brevo *BrevoService

	// seams for tests
	loadSettings  func(ctx context.Context) (*MembershipSettings, error)
	createSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	now           func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService() *CheckoutService {
	settings := NewSettingsService()
	return &CheckoutService{
		brevo:         NewBrevoService(),
		loadSettings:  settings.Load,
		createSession: session.New,
		now:           time.Now,
	}
}

// NormalizeEmail lowercases and trims a subscriber email. All identity
// lookups key on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BuildCheckout resolves configuration and identity, then builds the
// checkout session for the appropriate flow. Configuration and identity
// reads are sequential with the request timeout; there are no retries, a
// failed attempt surfaces immediately.
func (s *CheckoutService) BuildCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership settings: %w", err)
	}
	if settings.StripePriceID == "" {
		return nil, ErrPlanNotConfigured
	}

	user, err := database.GetUserByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	if user == nil {
		return s.buildNewSubscriberCheckout(ctx, req, email, settings)
	}

	if req.Options.CheckExisting {
		active, err := database.HasActiveMembership(email)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if active || user.MembershipStatus == models.UserMembershipActive {
			logging.Infof("Checkout declined, already a member - email: %s", email)
			return &CheckoutResult{
				AlreadyMember: true,
				RedirectURL:   config.AppConfig.SignInURL,
			}, nil
		}
	}

	return s.buildRenewalCheckout(ctx, req, email, settings)
}

// buildNewSubscriberCheckout creates the account and a recurring
// subscription session at the full configured plan price. Brand-new
// subscribers are never prorated.
func (s *CheckoutService) buildNewSubscriberCheckout(ctx context.Context, req CheckoutRequest, email string, settings *MembershipSettings) (*CheckoutResult, error) {
	if req.Options.CreateAccount {
		user := &models.User{
			UserID:           uuid.NewString(),
			Email:            email,
			Name:             req.Name,
			Phone:            req.Phone,
			MembershipStatus: models.UserMembershipPending,
		}
		if err := database.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		logging.Infof("Created subscriber account - email: %s, user_id: %s", email, user.UserID)

		if req.Options.SendInvite {
			// Single attempt, off the request path. A lost invite does
			// not block the checkout.
			go func(to, name string) {
				if err := s.brevo.SendInviteEmail(to, name); err != nil {
					logging.Errorf("Failed to send invite email to %s: %v", to, err)
				}
			}(email, req.Name)
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(settings.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL()),
		CancelURL:  stripe.String(cancelURL()),
	}
	params.Context = ctx
	s.attachMetadata(params, req, email)

	sess, err := s.createSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutResult{
		CheckoutURL: sess.URL,
		Mode:        CheckoutModeSubscription,
		AmountCents: settings.MembershipFeeCents,
	}, nil
}

// buildRenewalCheckout builds a one-off payment session for the prorated
// amount, tagged with the subscriber details for webhook correlation.
func (s *CheckoutService) buildRenewalCheckout(ctx context.Context, req CheckoutRequest, email string, settings *MembershipSettings) (*CheckoutResult, error) {
	amount := billing.ProratedCharge(settings.MembershipFeeCents, s.now())

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Membership (prorated)"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL()),
		CancelURL:  stripe.String(cancelURL()),
	}
	params.Context = ctx
	s.attachMetadata(params, req, email)

	sess, err := s.createSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	logging.Infof("Built renewal checkout - email: %s, amount_cents: %d", email, amount)

	return &CheckoutResult{
		CheckoutURL: sess.URL,
		Mode:        CheckoutModePayment,
		AmountCents: amount,
	}, nil
}

// attachMetadata tags the session so the webhook can correlate the
// payment back to the subscriber.
func (s *CheckoutService) attachMetadata(params *stripe.CheckoutSessionParams, req CheckoutRequest, email string) {
	params.AddMetadata("email", email)
	if req.Name != "" {
		params.AddMetadata("name", req.Name)
	}
	if req.Phone != "" {
		params.AddMetadata("phone", req.Phone)
	}
	if req.RestaurantID != "" {
		params.AddMetadata("restaurant_id", req.RestaurantID)
	}
}

// Deterministic redirect targets; the session id placeholder lets the
// returning browser be correlated without a server-side session.
func successURL() string {
	return config.AppConfig.PublicBaseURL + "/membership/success?session_id={CHECKOUT_SESSION_ID}"
}

func cancelURL() string {
	return config.AppConfig.PublicBaseURL + "/membership/canceled"
}
