package models

import (
	"time"
)

// PaymentEvent records a processor event that has already been applied to
// a membership. It is written inside the same transaction as the
// membership upsert, so a redelivered event is detected before it can
// extend the membership a second time.
type PaymentEvent struct {
	BaseModel

	EventID     string    `json:"event_id" gorm:"size:100;uniqueIndex"`
	ReceiptRef  string    `json:"receipt_ref" gorm:"size:100;index"`
	Email       string    `json:"email" gorm:"size:255;index"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableName 指定表名
func (PaymentEvent) TableName() string {
	return "payment_event"
}
