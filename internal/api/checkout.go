package api

import (
	"errors"
	"net/http"

	"membership-api/internal/services"
	"membership-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CreateCheckoutRequest represents a checkout creation request
type CreateCheckoutRequest struct {
	Email        string                    `json:"email" binding:"required,email"`
	Name         string                    `json:"name"`
	Phone        string                    `json:"phone"`
	RestaurantID string                    `json:"restaurant_id"`
	Options      *services.CheckoutOptions `json:"options"`
}

// CreateCheckout builds a payment-processor checkout for the subscriber
// POST /api/membership/checkout
func CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request format: " + err.Error(),
		})
		return
	}

	options := services.DefaultCheckoutOptions()
	if req.Options != nil {
		options = *req.Options
	}

	result, err := checkoutService.BuildCheckout(c.Request.Context(), services.CheckoutRequest{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		RestaurantID: req.RestaurantID,
		Options:      options,
	})
	if err != nil {
		if errors.Is(err, services.ErrPlanNotConfigured) {
			logging.Errorf("Checkout configuration error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Membership plan is not configured",
			})
			return
		}
		logging.Errorf("Checkout failed for %s: %v", req.Email, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Failed to create checkout: " + err.Error(),
		})
		return
	}

	if result.AlreadyMember {
		// Not an error: the caller should send the subscriber to sign
		// in instead of charging twice.
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"redirect": result.RedirectURL,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     result.CheckoutURL,
		"mode":    result.Mode,
	})
}
