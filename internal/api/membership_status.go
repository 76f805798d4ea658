package api

import (
	"errors"
	"net/http"
	"time"

	"membership-api/internal/database"
	"membership-api/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetMembershipStatusResponse represents membership status response
type GetMembershipStatusResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	IsActive  bool   `json:"is_active"`
	Status    string `json:"status,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// GetMembershipStatus reports the derived membership state for an email.
// GET /api/membership/status?email=xxx
//
// Membership is global per email; restaurant_id is accepted for callers
// that model per-venue views but does not change the lookup.
func GetMembershipStatus(c *gin.Context) {
	email := services.NormalizeEmail(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, GetMembershipStatusResponse{
			Success: false,
			Message: "email is required",
		})
		return
	}
	_ = c.Query("restaurant_id")

	membership, err := database.GetMembershipByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, GetMembershipStatusResponse{
				Success:  true,
				IsActive: false,
				Status:   "none",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, GetMembershipStatusResponse{
			Success: false,
			Message: "Failed to read membership",
		})
		return
	}

	now := time.Now()
	status := membership.Status
	if !membership.IsActive(now) && status == "active" {
		// Expiry is derived at read time, never written back
		status = "expired"
	}

	c.JSON(http.StatusOK, GetMembershipStatusResponse{
		Success:   true,
		IsActive:  membership.IsActive(now),
		Status:    status,
		ExpiresAt: membership.ExpiresAt.Format(time.RFC3339),
	})
}

// BillingHistoryEntry is one row of the subscriber-facing history
type BillingHistoryEntry struct {
	AmountCents int64  `json:"amount_cents"`
	PaidAt      string `json:"paid_at"`
	ExpiresAt   string `json:"expires_at"`
	ReceiptRef  string `json:"receipt_ref"`
	InvoiceURL  string `json:"invoice_url,omitempty"`
}

// GetBillingHistory lists the ledger rows for an email, newest first.
// GET /api/membership/billing-history?email=xxx
func GetBillingHistory(c *gin.Context) {
	email := services.NormalizeEmail(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "email is required",
		})
		return
	}

	entries, err := database.GetBillingHistory(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to read billing history",
		})
		return
	}

	history := make([]BillingHistoryEntry, 0, len(entries))
	for _, e := range entries {
		history = append(history, BillingHistoryEntry{
			AmountCents: e.AmountCents,
			PaidAt:      e.PaidAt.Format(time.RFC3339),
			ExpiresAt:   e.ExpiresAt.Format(time.RFC3339),
			ReceiptRef:  e.ReceiptRef,
			InvoiceURL:  e.InvoiceURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
	})
}
