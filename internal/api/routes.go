package api

import (
	"membership-api/internal/config"
	"membership-api/internal/middleware"
	"membership-api/internal/services"
	"membership-api/pkg/logging"
	"membership-api/pkg/requestqueue"

	"github.com/gin-gonic/gin"
)

// Shared service instances, wired once at startup after the database and
// redis connections exist.
var (
	checkoutService     *services.CheckoutService
	reconciler          *services.Reconciler
	verificationService *services.VerificationService
	settingsService     *services.SettingsService
	replayGuard         *services.ReplayGuard
)

// InitServices wires the service graph
func InitServices() {
	queue := requestqueue.New(config.AppConfig.OutboundConcurrency)

	storage, err := services.NewStorageService()
	if err != nil {
		logging.Errorf("Invoice storage disabled: %v", err)
		storage = nil
	}

	checkoutService = services.NewCheckoutService()
	reconciler = services.NewReconciler(services.NewInvoiceService(storage, queue))
	verificationService = services.NewVerificationService(queue)
	settingsService = services.NewSettingsService()
	replayGuard = services.NewReplayGuard()
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	InitServices()

	// API route group
	api := r.Group("/api")
	{
		// Membership routes (client API)
		membership := api.Group("/membership")
		{
			membership.POST("/checkout", CreateCheckout)
			membership.GET("/verify", VerifyCheckout)
			membership.GET("/status", GetMembershipStatus)
			membership.GET("/billing-history", GetBillingHistory)
		}

		// Stripe webhook route (no authentication, Stripe calls this)
		stripeGroup := api.Group("/stripe")
		{
			stripeGroup.POST("/webhook", StripeWebhookHandler)
		}

		// Settings routes (for admin use)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/settings", GetSettings)
			admin.PUT("/settings", UpdateSettings)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "membership-service",
		})
	})
}
