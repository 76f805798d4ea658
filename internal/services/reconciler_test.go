package services

import (
	"context"
	"testing"
	"time"

	"membership-api/internal/database"
	"membership-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReconciler(now time.Time) *Reconciler {
	return &Reconciler{
		now: func() time.Time { return now },
	}
}

func TestReconcilerActivatesAndExtends(t *testing.T) {
	setupServiceTest(t)
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)
	r := testReconciler(now)

	m, err := r.Apply(context.Background(), &PaymentEvent{
		EventID:     "evt_1",
		Email:       "Sub@Example.com",
		ReceiptRef:  "rcpt_1",
		AmountCents: 1250,
	})
	require.NoError(t, err)

	assert.Equal(t, "sub@example.com", m.Email)
	assert.Equal(t, models.MembershipStatusActive, m.Status)
	assert.Equal(t, now.AddDate(0, 1, 0), m.ExpiresAt)
}

func TestReconcilerRedeliveryLeavesStateUnchanged(t *testing.T) {
	setupServiceTest(t)
	now := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)

	first, err := testReconciler(now).Apply(context.Background(), &PaymentEvent{
		EventID:    "evt_1",
		Email:      "sub@example.com",
		ReceiptRef: "rcpt_1",
	})
	require.NoError(t, err)

	// Identical event redelivered an hour later
	second, err := testReconciler(now.Add(time.Hour)).Apply(context.Background(), &PaymentEvent{
		EventID:    "evt_1",
		Email:      "sub@example.com",
		ReceiptRef: "rcpt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt)

	var memberships int64
	require.NoError(t, database.DB.Model(&models.Membership{}).Count(&memberships).Error)
	assert.EqualValues(t, 1, memberships)
}

func TestReconcilerRejectsEventWithoutEmail(t *testing.T) {
	setupServiceTest(t)

	_, err := testReconciler(time.Now()).Apply(context.Background(), &PaymentEvent{
		EventID:    "evt_1",
		ReceiptRef: "rcpt_1",
	})
	require.Error(t, err)
}
