package services

import (
	"context"
	"testing"
	"time"

	"membership-api/internal/config"
	"membership-api/internal/database"
	"membership-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupServiceTest(t *testing.T) {
	t.Helper()

	config.AppConfig = &config.Config{
		PublicBaseURL:             "http://localhost:8080",
		SignInURL:                 "/login",
		ServiceName:               "Membership Service",
		DefaultMembershipFeeCents: 2500,
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Membership{},
		&models.BillingEntry{},
		&models.PaymentEvent{},
	))
	database.DB = db
}

type sessionRecorder struct {
	params *stripe.CheckoutSessionParams
}

func (r *sessionRecorder) create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	r.params = params
	return &stripe.CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.test/cs_test_1",
	}, nil
}

func testCheckoutService(recorder *sessionRecorder, fee int64, priceID string, now time.Time) *CheckoutService {
	return &CheckoutService{
		loadSettings: func(ctx context.Context) (*MembershipSettings, error) {
			return &MembershipSettings{MembershipFeeCents: fee, StripePriceID: priceID}, nil
		},
		createSession: recorder.create,
		now:           func() time.Time { return now },
	}
}

func checkoutOptions() CheckoutOptions {
	opts := DefaultCheckoutOptions()
	opts.SendInvite = false // no email side effects in tests
	return opts
}

func TestBuildCheckoutUnknownSubscriberUsesFullFee(t *testing.T) {
	setupServiceTest(t)
	recorder := &sessionRecorder{}
	// Day 20: proration would halve the fee, but new subscribers are
	// never prorated.
	svc := testCheckoutService(recorder, 2500, "price_123", time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC))

	result, err := svc.BuildCheckout(context.Background(), CheckoutRequest{
		Email:   "New.User@Example.com",
		Name:    "New User",
		Phone:   "+15550001111",
		Options: checkoutOptions(),
	})
	require.NoError(t, err)

	assert.False(t, result.AlreadyMember)
	assert.Equal(t, CheckoutModeSubscription, result.Mode)
	assert.EqualValues(t, 2500, result.AmountCents)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", result.CheckoutURL)

	require.NotNil(t, recorder.params)
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *recorder.params.Mode)
	assert.Equal(t, "price_123", *recorder.params.LineItems[0].Price)
	assert.Equal(t, "new.user@example.com", *recorder.params.CustomerEmail)

	// Account created with the pending marker, normalized email
	user, err := database.GetUserByEmail("new.user@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserMembershipPending, user.MembershipStatus)
	assert.NotEmpty(t, user.UserID)
}

func TestBuildCheckoutRenewalIsProrated(t *testing.T) {
	setupServiceTest(t)
	require.NoError(t, database.CreateUser(&models.User{
		UserID:           "user-1",
		Email:            "known@example.com",
		MembershipStatus: models.UserMembershipPending,
	}))

	recorder := &sessionRecorder{}
	svc := testCheckoutService(recorder, 2500, "price_123", time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC))

	result, err := svc.BuildCheckout(context.Background(), CheckoutRequest{
		Email:   "known@example.com",
		Options: checkoutOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, CheckoutModePayment, result.Mode)
	assert.EqualValues(t, 1250, result.AmountCents)

	require.NotNil(t, recorder.params)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *recorder.params.Mode)
	assert.EqualValues(t, 1250, *recorder.params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "known@example.com", recorder.params.Metadata["email"])
}

func TestBuildCheckoutRenewalFullFeeEarlyInMonth(t *testing.T) {
	setupServiceTest(t)
	require.NoError(t, database.CreateUser(&models.User{
		UserID: "user-1",
		Email:  "known@example.com",
	}))

	recorder := &sessionRecorder{}
	svc := testCheckoutService(recorder, 2500, "price_123", time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC))

	result, err := svc.BuildCheckout(context.Background(), CheckoutRequest{
		Email:   "known@example.com",
		Options: checkoutOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, CheckoutModePayment, result.Mode)
	assert.EqualValues(t, 2500, result.AmountCents)
}

func TestBuildCheckoutActiveMemberGetsRedirectNotCharge(t *testing.T) {
	setupServiceTest(t)
	require.NoError(t, database.CreateUser(&models.User{
		UserID: "user-1",
		Email:  "member@example.com",
	}))
	require.NoError(t, database.DB.Create(&models.Membership{
		Email:       "member@example.com",
		Status:      models.MembershipStatusActive,
		ActivatedAt: time.Now(),
		ExpiresAt:   time.Now().AddDate(0, 1, 0),
	}).Error)

	recorder := &sessionRecorder{}
	svc := testCheckoutService(recorder, 2500, "price_123", time.Now())

	result, err := svc.BuildCheckout(context.Background(), CheckoutRequest{
		Email:   "member@example.com",
		Options: checkoutOptions(),
	})
	require.NoError(t, err)

	assert.True(t, result.AlreadyMember)
	assert.Equal(t, "/login", result.RedirectURL)
	assert.Empty(t, result.CheckoutURL)
	assert.Nil(t, recorder.params, "no checkout session may be created for an active member")
}

func TestBuildCheckoutMissingPlanIsConfigurationError(t *testing.T) {
	setupServiceTest(t)
	recorder := &sessionRecorder{}
	svc := testCheckoutService(recorder, 2500, "", time.Now())

	_, err := svc.BuildCheckout(context.Background(), CheckoutRequest{
		Email:   "anyone@example.com",
		Options: checkoutOptions(),
	})
	require.ErrorIs(t, err, ErrPlanNotConfigured)
	assert.Nil(t, recorder.params)
}
