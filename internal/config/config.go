package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr               string
	MongoURI           string
	MongoDatabase      string
	ValkeyAddr         string
	SessionSecret      string
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	Origin             string
	QuotesURL          string
}

func Load() Config {
	port := envOrDefault("PORT", "8080")
	ttlHours := envOrDefault("SESSION_TTL_HOURS", "168")
	ttlParsed, err := strconv.Atoi(ttlHours)
	if err != nil || ttlParsed <= 0 {
		ttlParsed = 168
	}
	return Config{
		Addr:               ":" + port,
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      envOrDefault("MONGODB_DATABASE", "chat-application"),
		ValkeyAddr:         os.Getenv("VALKEY_ADDR"),
		SessionSecret:      envOrDefault("SESSION_SECRET", "development-secret"),
		SessionTTL:         time.Duration(ttlParsed) * time.Hour,
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   envOrDefault("OAUTH_REDIRECT_URL", "http://localhost:"+port+"/oauth2/redirect/google"),
		Origin:             os.Getenv("ORIGIN"),
		QuotesURL:          envOrDefault("QUOTES_URL", "https://zenquotes.io/api/random"),
	}
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
