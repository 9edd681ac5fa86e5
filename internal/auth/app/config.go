package app

import (
	"os"
	"strconv"
	"time"

	"github.com/risinghq/bmsauth/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for access tokens

	SigningAlg     string // JWT signing algorithm (HS256, EdDSA) (default: HS256)
	SigningSecret  string // HS256 secret (required for HS256)
	SigningKeyFile string // Path to Ed25519 PKCS8 PEM (required for EdDSA)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7 days)
	ResetTTL   time.Duration // Password reset token lifetime (default: 24h)

	RotateOnRefresh  bool // Rotate the refresh token on every redemption (default: true)
	ReuseDetection   bool // Revoke the rotation chain when a terminal token is presented (default: true)
	LogoutAllDevices bool // Logout revokes all of the user's sessions, not just the presented one (default: false)

	DBDriver string // Database driver (sqlite, postgres) (default: sqlite)
	DBDSN    string // Database DSN (default: ./auth.db via sqlite)

	AdminEmail    string // Initial admin email, used only when the database is empty
	AdminPassword string // Initial admin password, used only when the database is empty

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	TokenRetention       time.Duration // How long terminal token records are kept past expiry (default: 30 days)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "bmsauth"),
		SigningAlg:     getEnvOrDefault("AUTH_SIGNING_ALG", "HS256"),
		SigningSecret:  os.Getenv("AUTH_SIGNING_SECRET"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),

		AccessTTL:  getEnvDurationOrDefault("ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ResetTTL:   getEnvDurationOrDefault("RESET_TTL", 24*time.Hour),

		RotateOnRefresh:  getEnvBoolOrDefault("ROTATE_ON_REFRESH", true),
		ReuseDetection:   getEnvBoolOrDefault("REUSE_DETECTION", true),
		LogoutAllDevices: getEnvBoolOrDefault("LOGOUT_ALL_DEVICES", false),

		DBDriver: getEnvOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:    os.Getenv("DB_DSN"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		TokenRetention:       getEnvDurationOrDefault("TOKEN_RETENTION", 30*24*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Parse as duration first (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
