package models

import (
	"time"
)

// Membership statuses stored in the database. "expired" is never written;
// expiry is derived at read time from ExpiresAt.
const (
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
)

// Membership represents a subscription window for one subscriber.
// There is at most one row per normalized email (global membership; the
// per-restaurant view elsewhere in the product is a projection of this
// row, see DESIGN.md).
type Membership struct {
	BaseModel

	Email  string `json:"email" gorm:"size:255;uniqueIndex;not null"` // normalized lowercase
	UserID string `json:"user_id" gorm:"size:36;index"`               // optional link to user table

	// RestaurantID is a projection hint only. The reconciler never keys
	// on it and uniqueness is by email alone.
	RestaurantID string `json:"restaurant_id" gorm:"size:64;index"`

	Status      string    `json:"status" gorm:"not null;size:20;index"`
	ActivatedAt time.Time `json:"activated_at"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"index"`

	// StripePriceID records the recurring plan the membership was bought
	// under, for correlation with the processor.
	StripePriceID string `json:"stripe_price_id" gorm:"size:100"`
}

// IsActive reports whether the membership grants access right now.
// A zero ExpiresAt means no expiry has been set (treated as active while
// the status is active).
func (m *Membership) IsActive(now time.Time) bool {
	if m.Status != MembershipStatusActive {
		return false
	}
	return m.ExpiresAt.IsZero() || m.ExpiresAt.After(now)
}
