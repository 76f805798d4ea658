package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"membership-api/internal/config"
	"membership-api/internal/database"
	"membership-api/internal/models"
	"membership-api/pkg/logging"
	"membership-api/pkg/requestqueue"

	"github.com/shopspring/decimal"
)

// invoiceTemplate is the rendered invoice artifact. Deliberately
// minimal; the ledger row is the financial record, this is the
// subscriber-facing document.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Invoice - {{.ServiceName}}</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1>{{.ServiceName}} - Membership Invoice</h1>
	<table style="width: 100%; border-collapse: collapse;">
		<tr><td style="padding: 8px 0; color: #666;">Billed to</td><td style="text-align: right;">{{.Email}}</td></tr>
		<tr><td style="padding: 8px 0; color: #666;">Amount paid</td><td style="text-align: right;">{{.Amount}}</td></tr>
		<tr><td style="padding: 8px 0; color: #666;">Paid on</td><td style="text-align: right;">{{.PaidAt}}</td></tr>
		<tr><td style="padding: 8px 0; color: #666;">Membership active through</td><td style="text-align: right;">{{.PaidThrough}}</td></tr>
		<tr><td style="padding: 8px 0; color: #666;">Reference</td><td style="text-align: right;">{{.ReceiptRef}}</td></tr>
	</table>
</body>
</html>
`

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

var objectKeyUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

// InvoiceService appends billing history and produces the invoice
// artifact plus the confirmation email.
type InvoiceService struct {
	storage *StorageService
	queue   *requestqueue.Queue
	now     func() time.Time

	// seam for tests
	sendEmail func(email, invoiceURL string, expiresAt time.Time) error
}

// NewInvoiceService creates a new invoice service. storage may be nil
// when object storage is not configured; ledger rows are still written.
func NewInvoiceService(storage *StorageService, queue *requestqueue.Queue) *InvoiceService {
	brevo := NewBrevoService()
	return &InvoiceService{
		storage:   storage,
		queue:     queue,
		now:       time.Now,
		sendEmail: brevo.SendMembershipEmail,
	}
}

// Record appends one immutable billing-history row, renders and stores
// the invoice document, and fires the best-effort confirmation email.
// Returns the invoice URL (the processor receipt reference when
// document storage is unavailable or fails).
//
// The ledger is append-only, so the invoice document is produced first
// and the row is written exactly once with its URL in place.
func (s *InvoiceService) Record(ctx context.Context, email string, amountCents int64, expiresAt time.Time, receiptRef string) (string, error) {
	now := s.now()

	invoiceURL := s.produceInvoice(ctx, email, amountCents, now, expiresAt, receiptRef)

	entry := &models.BillingEntry{
		Email:       email,
		AmountCents: amountCents,
		PaidAt:      now,
		ExpiresAt:   expiresAt,
		ReceiptRef:  receiptRef,
		InvoiceURL:  invoiceURL,
	}
	if err := database.CreateBillingEntry(entry); err != nil {
		// Unique receipt index makes a duplicate delivery surface here.
		return "", fmt.Errorf("failed to append billing entry: %w", err)
	}

	// Notification is fire-and-forget; a failed email never fails the
	// reconciliation.
	s.sendConfirmation(ctx, email, invoiceURL, expiresAt)

	return invoiceURL, nil
}

// produceInvoice renders and uploads the invoice document. The artifact
// is keyed by identity, so regenerating overwrites the prior invoice and
// only the latest is retrievable per subscriber (the ledger keeps the
// receipt reference for historical lookups).
func (s *InvoiceService) produceInvoice(ctx context.Context, email string, amountCents int64, paidAt, expiresAt time.Time, receiptRef string) string {
	if s.storage == nil {
		return receiptRef
	}

	var buf bytes.Buffer
	err := invoiceTmpl.Execute(&buf, map[string]string{
		"ServiceName": config.AppConfig.ServiceName,
		"Email":       email,
		"Amount":      formatCents(amountCents),
		"PaidAt":      paidAt.Format("January 2, 2006"),
		"PaidThrough": expiresAt.Format("January 2, 2006"),
		"ReceiptRef":  receiptRef,
	})
	if err != nil {
		logging.Errorf("Failed to render invoice for %s: %v", email, err)
		return receiptRef
	}

	key := InvoiceObjectKey(email)
	var url string
	uploadErr := s.queue.Do(ctx, "invoice-upload", func() error {
		var err error
		url, err = s.storage.Upload(ctx, key, "text/html", buf.Bytes())
		return err
	})
	if uploadErr != nil {
		logging.Errorf("Failed to upload invoice %s, falling back to receipt ref: %v", key, uploadErr)
		return receiptRef
	}

	return url
}

func (s *InvoiceService) sendConfirmation(ctx context.Context, email, invoiceURL string, expiresAt time.Time) {
	err := s.queue.Do(ctx, "membership-email", func() error {
		return s.sendEmail(email, invoiceURL, expiresAt)
	})
	if err != nil {
		logging.Errorf("Failed to send membership email to %s: %v", email, err)
	}
}

// InvoiceObjectKey derives the deterministic storage path for a
// subscriber's invoice document.
func InvoiceObjectKey(email string) string {
	sanitized := objectKeyUnsafe.ReplaceAllString(strings.ToLower(email), "-")
	return "invoices/" + sanitized + ".html"
}

func formatCents(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
