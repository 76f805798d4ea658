package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"membership-api/internal/database"
	"membership-api/internal/models"
	"membership-api/pkg/requestqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
)

func testVerificationService(fetch func(id string) (*stripe.CheckoutSession, error)) *VerificationService {
	return &VerificationService{
		queue:        requestqueue.New(2, requestqueue.WithMaxElapsed(50*time.Millisecond)),
		fetchSession: fetch,
	}
}

func sessionWithEmail(email string) func(string) (*stripe.CheckoutSession, error) {
	return func(id string) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{
			ID:              id,
			CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: email},
		}, nil
	}
}

func TestVerifyPendingBeforeWebhookLands(t *testing.T) {
	setupServiceTest(t)
	svc := testVerificationService(sessionWithEmail("sub@example.com"))

	result := svc.Verify(context.Background(), "cs_1", false)
	assert.Equal(t, VerifyStatusPending, result.Status)
	assert.False(t, result.Navigate)
}

func TestVerifySuccessAfterReconciliation(t *testing.T) {
	setupServiceTest(t)
	require.NoError(t, database.DB.Create(&models.Membership{
		Email:       "sub@example.com",
		Status:      models.MembershipStatusActive,
		ActivatedAt: time.Now(),
		ExpiresAt:   time.Now().AddDate(0, 1, 0),
	}).Error)

	svc := testVerificationService(sessionWithEmail("sub@example.com"))

	result := svc.Verify(context.Background(), "cs_1", false)
	assert.Equal(t, VerifyStatusSuccess, result.Status)
	assert.NotEmpty(t, result.ExpiresAt)
	assert.True(t, result.Navigate)

	// Caller-marked repeat poll never re-triggers navigation
	repeat := svc.Verify(context.Background(), "cs_1", true)
	assert.Equal(t, VerifyStatusSuccess, repeat.Status)
	assert.False(t, repeat.Navigate)
}

func TestVerifyExpiredMembershipStaysPending(t *testing.T) {
	setupServiceTest(t)
	require.NoError(t, database.DB.Create(&models.Membership{
		Email:       "sub@example.com",
		Status:      models.MembershipStatusActive,
		ActivatedAt: time.Now().AddDate(0, -2, 0),
		ExpiresAt:   time.Now().AddDate(0, -1, 0),
	}).Error)

	svc := testVerificationService(sessionWithEmail("sub@example.com"))

	result := svc.Verify(context.Background(), "cs_1", false)
	assert.Equal(t, VerifyStatusPending, result.Status)
}

func TestVerifyTerminalErrorAfterRetriesExhausted(t *testing.T) {
	setupServiceTest(t)
	attempts := 0
	svc := testVerificationService(func(id string) (*stripe.CheckoutSession, error) {
		attempts++
		return nil, errors.New("stripe unavailable")
	})

	result := svc.Verify(context.Background(), "cs_1", false)
	assert.Equal(t, VerifyStatusError, result.Status)
	assert.NotEmpty(t, result.Detail)
	assert.GreaterOrEqual(t, attempts, 1)
}
