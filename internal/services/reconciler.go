package services

import (
	"context"
	"fmt"
	"time"

	"membership-api/internal/database"
	"membership-api/internal/models"
	"membership-api/pkg/logging"
)

// PaymentEvent is a classified payment notification, already verified
// and reduced to what reconciliation needs.
type PaymentEvent struct {
	EventID     string
	Email       string
	ReceiptRef  string
	AmountCents int64
	PriceID     string
}

// Reconciler applies verified payment events to membership state exactly
// once and triggers the paper-trail side effects.
type Reconciler struct {
	invoices *InvoiceService
	now      func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(invoices *InvoiceService) *Reconciler {
	return &Reconciler{
		invoices: invoices,
		now:      time.Now,
	}
}

// Apply upserts the membership for the event's subscriber. Only a
// storage failure during the upsert is returned to the caller (so the
// webhook can signal the processor to retry); ledger, invoice and
// notification failures are logged and swallowed because the subscriber
// has already been granted access.
func (r *Reconciler) Apply(ctx context.Context, ev *PaymentEvent) (*models.Membership, error) {
	email := NormalizeEmail(ev.Email)
	if email == "" {
		return nil, fmt.Errorf("payment event has no subscriber email")
	}

	// Link the durable user id when the account exists; the webhook may
	// arrive before account creation was ever needed.
	userID := ""
	if user, err := database.GetUserByEmail(email); err == nil {
		userID = user.UserID
	}

	membership, applied, err := database.ApplyPaymentEvent(email, userID, ev.EventID, ev.ReceiptRef, ev.PriceID, r.now())
	if err != nil {
		return nil, fmt.Errorf("membership upsert failed: %w", err)
	}
	if !applied {
		// Redelivery of an event we already processed: same final
		// state, no second ledger row.
		return membership, nil
	}

	logging.Infof("Membership reconciled - email: %s, expires_at: %s, receipt: %s",
		email, membership.ExpiresAt.Format(time.RFC3339), ev.ReceiptRef)

	if r.invoices != nil {
		go func(email string, amount int64, expiresAt time.Time, receipt string) {
			if _, err := r.invoices.Record(context.Background(), email, amount, expiresAt, receipt); err != nil {
				logging.Errorf("Ledger/invoice recording failed for %s (membership stays active): %v", email, err)
			}
		}(email, ev.AmountCents, membership.ExpiresAt, ev.ReceiptRef)
	}

	return membership, nil
}
