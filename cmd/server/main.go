package main

import (
	"log"

	"membership-api/internal/api"
	"membership-api/internal/config"
	"membership-api/internal/database"
	"membership-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v74"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Configure the Stripe client
	stripe.Key = config.AppConfig.StripeSecretKey

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r)

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
