package database

import (
	"membership-api/internal/models"
)

// CreateBillingEntry appends one row to the billing history. The table
// is append-only; there is deliberately no update or delete helper.
func CreateBillingEntry(entry *models.BillingEntry) error {
	return DB.Create(entry).Error
}

// GetBillingEntryByReceipt looks up a ledger row by processor receipt
func GetBillingEntryByReceipt(receiptRef string) (*models.BillingEntry, error) {
	var entry models.BillingEntry
	err := DB.Where("receipt_ref = ?", receiptRef).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetBillingHistory returns all ledger rows for an email, newest first.
// Used by the product's billing history display.
func GetBillingHistory(email string) ([]models.BillingEntry, error) {
	var entries []models.BillingEntry
	err := DB.Where("email = ?", email).Order("paid_at DESC").Find(&entries).Error
	return entries, err
}

// CountBillingEntriesByReceipt counts rows for a receipt reference
func CountBillingEntriesByReceipt(receiptRef string) (int64, error) {
	var count int64
	err := DB.Model(&models.BillingEntry{}).Where("receipt_ref = ?", receiptRef).Count(&count).Error
	return count, err
}
