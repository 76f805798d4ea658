package models

// Membership status markers stored in the user metadata.
// "pending" means the account was created at checkout but no payment
// event has been reconciled yet.
const (
	UserMembershipPending = "pending"
	UserMembershipActive  = "active"
)

// User represents a subscriber account.
// Accounts are created lazily the first time an unknown email starts a
// checkout; the unique email index is what prevents duplicate accounts.
type User struct {
	BaseModel

	UserID string `json:"user_id" gorm:"size:36;uniqueIndex;not null"` // durable identifier (UUID)
	Email  string `json:"email" gorm:"size:255;uniqueIndex;not null"`  // normalized lowercase
	Name   string `json:"name" gorm:"size:255"`
	Phone  string `json:"phone" gorm:"size:50"`

	// MembershipStatus mirrors the marker written into processor-side
	// metadata: pending until the first payment event is reconciled.
	MembershipStatus string `json:"membership_status" gorm:"size:20;default:'pending'"`
}
