package api

import (
	"encoding/json"
	"net/http"
	"time"

	"membership-api/internal/config"
	"membership-api/internal/services"
	"membership-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeWebhookHandler processes payment notifications from Stripe.
// POST /api/stripe/webhook
//
// Stripe retries any non-2xx response forever, so everything that is not
// an authentication failure or a membership-storage failure must answer
// 200 even when the event is ignored or dropped.
func StripeWebhookHandler(c *gin.Context) {
	startTime := time.Now()

	body, err := c.GetRawData()
	if err != nil {
		logging.Errorf("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Failed to read request body",
		})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(body, sigHeader, config.AppConfig.StripeWebhookSecret, webhook.ConstructEventOptions{
		// The endpoint may be pinned to a different Stripe API version
		// than this library; only the signature decides acceptance.
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		// Security-relevant: an unsigned or tampered payload never
		// reaches any processing.
		logging.Errorf("Webhook signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Signature verification failed",
		})
		return
	}

	paymentEvent, ok := classifyEvent(&event)
	if !ok {
		logging.Infof("Ignoring webhook event type: %s (id: %s)", event.Type, event.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "ignored",
		})
		return
	}

	if paymentEvent.Email == "" {
		// Cannot reconcile without an identity. Answer 200 so Stripe
		// stops redelivering, but leave an operational trace.
		logging.Errorf("Dropping webhook event %s (%s): no subscriber email in payload", event.ID, event.Type)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "dropped",
		})
		return
	}

	if replayGuard.IsDuplicate(c.Request.Context(), event.ID) {
		logging.Infof("Duplicate webhook delivery filtered - event_id: %s", event.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "duplicate",
		})
		return
	}

	membership, err := reconciler.Apply(c.Request.Context(), paymentEvent)
	if err != nil {
		// Membership was not granted; a 500 makes Stripe redeliver.
		logging.Errorf("Failed to reconcile payment event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to process notification",
		})
		return
	}

	// Record the delivery only after the grant has committed. Marking
	// earlier would make Stripe's retry of a failed delivery look like a
	// duplicate and the membership would never be granted.
	replayGuard.MarkProcessed(c.Request.Context(), event.ID)

	expiresAt := ""
	if membership != nil {
		expiresAt = membership.ExpiresAt.Format(time.RFC3339)
	}
	logging.Infof("Webhook processed - type: %s, email: %s, expires_at: %s, time: %v",
		event.Type, paymentEvent.Email, expiresAt, time.Since(startTime))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification processed successfully",
	})
}

// classifyEvent reduces a Stripe event to the domain payment event. Only
// checkout completion and recurring invoice payment are meaningful here;
// ok is false for everything else.
func classifyEvent(event *stripe.Event) (*services.PaymentEvent, bool) {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			logging.Errorf("Failed to parse checkout session from event %s: %v", event.ID, err)
			return &services.PaymentEvent{EventID: event.ID}, true
		}

		email := ""
		if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
			email = sess.CustomerDetails.Email
		} else if sess.CustomerEmail != "" {
			email = sess.CustomerEmail
		} else if sess.Metadata != nil {
			email = sess.Metadata["email"]
		}

		receiptRef := sess.ID
		if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
			receiptRef = sess.PaymentIntent.ID
		}

		return &services.PaymentEvent{
			EventID:     event.ID,
			Email:       email,
			ReceiptRef:  receiptRef,
			AmountCents: sess.AmountTotal,
		}, true

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			logging.Errorf("Failed to parse invoice from event %s: %v", event.ID, err)
			return &services.PaymentEvent{EventID: event.ID}, true
		}

		priceID := ""
		if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Price != nil {
			priceID = inv.Lines.Data[0].Price.ID
		}

		return &services.PaymentEvent{
			EventID:     event.ID,
			Email:       inv.CustomerEmail,
			ReceiptRef:  inv.ID,
			AmountCents: inv.AmountPaid,
			PriceID:     priceID,
		}, true
	}

	return nil, false
}
