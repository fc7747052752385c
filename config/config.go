package config

import (
	"os"
	"strings"
	"time"

	"github.com/Mauryln/testingserver/internal/helper"
)

type Config struct {
	Port string

	// Per-user WhatsApp auth store. AuthDir holds one sqlite file per user;
	// when WhatsAppDBURL is set (postgres://...) a shared container is used
	// instead and per-user cleanup deletes device rows.
	AuthDir       string
	WhatsAppDBURL string
	DeviceName    string

	CORSAllowOrigins []string
	RateLimit        int
	RateBurst        int
	RateWindow       time.Duration

	// QRTimeout bounds how long a login waits for a scan before giving up.
	QRTimeout time.Duration

	// CleanupGrace is the wait before the deferred auth-state removal after
	// close-session, so the store can finish releasing file handles.
	CleanupGrace time.Duration

	// DelayAfterLast makes the dispatcher sleep after the final recipient
	// of a bulk job too, for callers that chain jobs back to back.
	DelayAfterLast bool

	// Hardened wipes the whole auth store at process start. Per-user state
	// is always removed on close and auth failure regardless.
	Hardened bool

	// JWTSecret, when set, puts every endpoint behind bearer-token auth.
	JWTSecret string
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "3000"),
		AuthDir:          getEnv("AUTH_DIR", ".wa_auth"),
		WhatsAppDBURL:    getEnv("WHATSAPP_DB_URL", ""),
		DeviceName:       getEnv("DEVICE_NAME", "TestingServer"),
		CORSAllowOrigins: splitOrigins(getEnv("CORS_ALLOW_ORIGINS", "*")),
		RateLimit:        helper.GetEnvAsInt("RATE_LIMIT_PER_SECOND", 10),
		RateBurst:        helper.GetEnvAsInt("RATE_LIMIT_BURST", 10),
		RateWindow:       time.Duration(helper.GetEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 3)) * time.Minute,
		QRTimeout:        time.Duration(helper.GetEnvAsInt("QR_TIMEOUT_SECONDS", 180)) * time.Second,
		CleanupGrace:     time.Duration(helper.GetEnvAsInt("CLEANUP_GRACE_SECONDS", 2)) * time.Second,
		DelayAfterLast:   getEnv("SEND_DELAY_AFTER_LAST", "") == "true",
		Hardened:         getEnv("HARDENED_CLEANUP", "true") != "false",
		JWTSecret:        getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
