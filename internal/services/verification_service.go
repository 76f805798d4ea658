package services

import (
	"context"
	"errors"
	"time"

	"membership-api/internal/database"
	"membership-api/pkg/logging"
	"membership-api/pkg/requestqueue"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"gorm.io/gorm"
)

// Verification outcomes surfaced to the returning browser
const (
	VerifyStatusPending = "pending"
	VerifyStatusSuccess = "success"
	VerifyStatusError   = "error"
)

// VerifyResult is what the returning browser gets after redirect-back
type VerifyResult struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`

	// Navigate is true exactly once per checkout session, on the first
	// poll that observes the membership active. The UI advances on it.
	Navigate bool `json:"navigate"`
}

// VerificationService closes the loop for the returning browser: it
// resolves the checkout session to a subscriber email and checks whether
// the webhook-driven reconciliation has landed, without waiting on the
// webhook itself.
type VerificationService struct {
	client *redis.Client
	queue  *requestqueue.Queue

	// seam for tests
	fetchSession func(id string) (*stripe.CheckoutSession, error)
}

// NewVerificationService creates a new verification service
func NewVerificationService(queue *requestqueue.Queue) *VerificationService {
	return &VerificationService{
		client: database.GetRedis(),
		queue:  queue,
		fetchSession: func(id string) (*stripe.CheckoutSession, error) {
			return session.Get(id, nil)
		},
	}
}

// Verify checks reconciliation state for a checkout session id.
//
// The session-to-email resolution hits Stripe with bounded retries; the
// result is cached in redis so repeat polls (and the alreadyProcessed
// fast path) never re-trigger the outbound call. The navigation trigger
// fires at most once per session id.
func (s *VerificationService) Verify(ctx context.Context, sessionID string, alreadyProcessed bool) *VerifyResult {
	email, err := s.resolveEmail(ctx, sessionID, alreadyProcessed)
	if err != nil {
		logging.Errorf("Checkout verification failed for session %s: %v", sessionID, err)
		return &VerifyResult{
			Status: VerifyStatusError,
			Detail: "could not verify payment session, please retry",
		}
	}
	if email == "" {
		return &VerifyResult{Status: VerifyStatusPending}
	}

	membership, err := database.GetMembershipByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Webhook has not landed yet
			return &VerifyResult{Status: VerifyStatusPending}
		}
		logging.Errorf("Membership read failed for %s: %v", email, err)
		return &VerifyResult{
			Status: VerifyStatusError,
			Detail: "could not read membership state, please retry",
		}
	}

	if !membership.IsActive(time.Now()) {
		return &VerifyResult{Status: VerifyStatusPending}
	}

	return &VerifyResult{
		Status:    VerifyStatusSuccess,
		ExpiresAt: membership.ExpiresAt.Format(time.RFC3339),
		Navigate:  s.claimNavigation(ctx, sessionID) && !alreadyProcessed,
	}
}

// resolveEmail maps a checkout session id to the subscriber email,
// caching the answer per session. The Stripe call runs through the
// request queue so transient failures are retried a bounded number of
// times instead of polling forever.
func (s *VerificationService) resolveEmail(ctx context.Context, sessionID string, alreadyProcessed bool) (string, error) {
	cacheKey := "checkout_session_email:" + sessionID

	if s.client != nil {
		if cached, err := s.client.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}
	if alreadyProcessed {
		// Caller says the session was handled before but the cache is
		// gone; fall through to a fresh resolution.
		logging.Infof("Already-processed poll with cold cache for session %s", sessionID)
	}

	var sess *stripe.CheckoutSession
	err := s.queue.Do(ctx, "checkout-session-fetch", func() error {
		var err error
		sess, err = s.fetchSession(sessionID)
		return err
	})
	if err != nil {
		return "", err
	}

	email := ""
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email = sess.CustomerDetails.Email
	} else if sess.CustomerEmail != "" {
		email = sess.CustomerEmail
	}
	email = NormalizeEmail(email)

	if email != "" && s.client != nil {
		if err := s.client.Set(ctx, cacheKey, email, 30*time.Minute).Err(); err != nil {
			logging.Errorf("Failed to cache session email for %s: %v", sessionID, err)
		}
	}

	return email, nil
}

// claimNavigation returns true for the first caller per session id.
// When redis is unavailable it returns true; a double navigation is less
// harmful than never advancing the UI.
func (s *VerificationService) claimNavigation(ctx context.Context, sessionID string) bool {
	if s.client == nil {
		return true
	}
	first, err := s.client.SetNX(ctx, "checkout_navigated:"+sessionID, 1, 30*time.Minute).Result()
	if err != nil {
		logging.Errorf("Navigation guard unavailable for session %s: %v", sessionID, err)
		return true
	}
	return first
}
