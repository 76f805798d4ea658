package api

import (
	"net/http"

	"membership-api/internal/response"

	"github.com/gin-gonic/gin"
)

// GetSettings returns the current membership fee and plan configuration
// GET /api/admin/settings
func GetSettings(c *gin.Context) {
	settings, err := settingsService.Reload(c.Request.Context())
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load settings: "+err.Error())
		return
	}

	response.SuccessJSON(c, settings)
}

// UpdateSettingsRequest represents update settings request
type UpdateSettingsRequest struct {
	MembershipFeeCents int64  `json:"membership_fee_cents"`
	StripePriceID      string `json:"stripe_price_id"`
}

// UpdateSettings updates membership fee and/or the recurring plan
// reference, forcing a settings reload.
// PUT /api/admin/settings
func UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if req.MembershipFeeCents <= 0 && req.StripePriceID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	settings, err := settingsService.Update(c.Request.Context(), req.MembershipFeeCents, req.StripePriceID)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to update settings: "+err.Error())
		return
	}

	response.JSON(c, http.StatusOK, response.Response{
		Success: true,
		Message: "Settings updated successfully",
		Data:    settings,
	})
}
