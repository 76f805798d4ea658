package database

import (
	"errors"
	"time"

	"membership-api/internal/models"
	"membership-api/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetMembershipByEmail gets the membership row for a normalized email
func GetMembershipByEmail(email string) (*models.Membership, error) {
	var membership models.Membership
	err := DB.Where("email = ?", email).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// HasActiveMembership reports whether the email currently holds an
// active, non-expired membership. Expiry is computed here at read time;
// no background job ever flips rows to expired.
func HasActiveMembership(email string) (bool, error) {
	var membership models.Membership
	err := DB.Where("email = ?", email).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return membership.IsActive(time.Now()), nil
}

// ApplyPaymentEvent applies one successful payment event to the
// membership table in a single transaction.
//
// The row is locked for the duration of the transaction so two
// concurrent deliveries for the same subscriber cannot both extend from
// a stale expiration. The new expiration is one calendar month after the
// current expiration when that still lies in the future, otherwise one
// month after now - renewing early never shortens the paid-through date.
//
// A PaymentEvent marker is written in the same transaction; if the event
// id or receipt reference was seen before the whole call is a no-op and
// applied is returned false.
func ApplyPaymentEvent(email, userID, eventID, receiptRef, priceID string, now time.Time) (membership *models.Membership, applied bool, err error) {
	err = DB.Transaction(func(tx *gorm.DB) error {
		// Duplicate delivery check inside the transaction so the
		// decision and the marker write cannot race.
		var count int64
		dupQuery := tx.Model(&models.PaymentEvent{})
		if eventID != "" && receiptRef != "" {
			dupQuery = dupQuery.Where("event_id = ? OR receipt_ref = ?", eventID, receiptRef)
		} else if eventID != "" {
			dupQuery = dupQuery.Where("event_id = ?", eventID)
		} else {
			dupQuery = dupQuery.Where("receipt_ref = ?", receiptRef)
		}
		if err := dupQuery.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			logging.Infof("Duplicate payment event ignored - event_id: %s, receipt: %s", eventID, receiptRef)
			var existing models.Membership
			if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
				membership = &existing
			}
			return nil
		}

		// Lock the membership row. SQLite (dev fallback) has no row
		// locks; its single-writer transactions serialize anyway.
		query := tx.Where("email = ?", email)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var existing models.Membership
		findErr := query.First(&existing).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		base := now
		if findErr == nil && existing.ExpiresAt.After(now) {
			base = existing.ExpiresAt
		}
		newExpiry := base.AddDate(0, 1, 0)

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			existing = models.Membership{
				Email:         email,
				UserID:        userID,
				Status:        models.MembershipStatusActive,
				ActivatedAt:   now,
				ExpiresAt:     newExpiry,
				StripePriceID: priceID,
			}
			if err := tx.Create(&existing).Error; err != nil {
				return err
			}
		} else {
			existing.Status = models.MembershipStatusActive
			existing.ActivatedAt = now
			existing.ExpiresAt = newExpiry
			if userID != "" && existing.UserID == "" {
				existing.UserID = userID
			}
			if priceID != "" {
				existing.StripePriceID = priceID
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		}

		event := models.PaymentEvent{
			EventID:     eventID,
			ReceiptRef:  receiptRef,
			Email:       email,
			ProcessedAt: now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		// Flip the account marker so checkout stops offering this email
		// a new session. Not fatal if the account does not exist yet.
		tx.Model(&models.User{}).Where("email = ?", email).
			Update("membership_status", models.UserMembershipActive)

		membership = &existing
		applied = true
		return nil
	})

	return membership, applied, err
}
