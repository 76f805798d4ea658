package models

import (
	"time"
)

// BillingEntry is one immutable row per successfully reconciled payment
// event. Rows are only ever inserted by the invoice producer; nothing in
// this service updates or deletes them.
type BillingEntry struct {
	BaseModel

	Email       string    `json:"email" gorm:"size:255;not null;index"`
	AmountCents int64     `json:"amount_cents" gorm:"not null"`
	PaidAt      time.Time `json:"paid_at"`
	ExpiresAt   time.Time `json:"expires_at"` // paid-through date computed by the reconciler

	// ReceiptRef is the processor-side reference (payment intent or
	// invoice id). Unique so a redelivered event can never produce a
	// second row for the same receipt.
	ReceiptRef string `json:"receipt_ref" gorm:"size:100;uniqueIndex"`

	InvoiceURL string `json:"invoice_url" gorm:"size:500"`
}

// TableName keeps the ledger table name explicit
func (BillingEntry) TableName() string {
	return "billing_entry"
}
