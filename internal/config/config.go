package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port          string
	Mode          string
	PublicBaseURL string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Stripe configuration
	StripeSecretKey     string
	StripeWebhookSecret string

	// Membership defaults (redis settings override the fee at runtime)
	DefaultMembershipFeeCents int64
	SignInURL                 string

	// Admin API configuration
	AdminAPIKey string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// S3 invoice storage configuration
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3EndpointURL     string
	S3PublicBaseURL   string

	// Outbound request queue configuration
	OutboundConcurrency int
	ServiceName         string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:          getEnv("PORT", "8080"),
		Mode:          getEnv("GIN_MODE", "debug"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		DefaultMembershipFeeCents: getEnvInt64("MEMBERSHIP_FEE_CENTS", 2500),
		SignInURL:                 getEnv("SIGN_IN_URL", "/login"),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		BrevoAPIKey:    getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail: getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:  getEnv("BREVO_FROM_NAME", "Membership Service"),

		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3EndpointURL:     getEnv("S3_ENDPOINT_URL", ""),
		S3PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),

		OutboundConcurrency: getEnvInt("OUTBOUND_CONCURRENCY", 8),
		ServiceName:         getEnv("SERVICE_NAME", "Membership Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
