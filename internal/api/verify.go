package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// VerifyCheckoutResponse represents the poll response for the returning
// browser
type VerifyCheckoutResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Navigate  bool   `json:"navigate"`
}

// VerifyCheckout confirms whether reconciliation completed for a
// checkout session after redirect-back from the payment processor.
// GET /api/membership/verify?session_id=xxx&already_processed=true
func VerifyCheckout(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, VerifyCheckoutResponse{
			Success: false,
			Status:  "error",
			Detail:  "session_id is required",
		})
		return
	}

	// Caller-supplied guard: the UI sets this after its first completed
	// poll so repeated polls never re-trigger side effects.
	alreadyProcessed := c.Query("already_processed") == "true"

	result := verificationService.Verify(c.Request.Context(), sessionID, alreadyProcessed)

	c.JSON(http.StatusOK, VerifyCheckoutResponse{
		Success:   true,
		Status:    result.Status,
		Detail:    result.Detail,
		ExpiresAt: result.ExpiresAt,
		Navigate:  result.Navigate,
	})
}
