package config

import (
	"os"
)

type Config struct {
	Port        string
	DatabaseURL string
	FrontendURL string
	RSVPBaseURL string

	JWTSecret string
	JWTIssuer string

	Stripe StripeConfig
	Email  EmailConfig

	TurnstileSecretKey string
	AllowedOrigins     string
}

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	OverflowPriceID string
}

type EmailConfig struct {
	ResendAPIKey string
	FromAddress  string
	FromName     string
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		RSVPBaseURL: getEnv("RSVP_BASE_URL", "https://owlrsvp.com/e/"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "owlrsvp"),

		Stripe: StripeConfig{
			SecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
			OverflowPriceID: os.Getenv("STRIPE_OVERFLOW_PRICE_ID"),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			FromAddress:  os.Getenv("EMAIL_FROM_ADDRESS"),
			FromName:     getEnv("EMAIL_FROM_NAME", "OwlRSVP"),
		},

		TurnstileSecretKey: os.Getenv("CF_TURNSTILE_SECRET_KEY"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "https://owlrsvp.com, https://www.owlrsvp.com, http://localhost:5173"),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
