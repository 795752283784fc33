package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/cryptox"
	"github.com/aussiebroadwan/squeezy/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseFile string // Optional: path to SQLite database file (default: ./squeezy.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	JWTSecret        string        // Required in prod: signs access tokens
	JWTRefreshSecret string        // Required in prod: signs refresh tokens
	AccessTTL        time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL       time.Duration // Optional: refresh token lifetime (default: 30 days)

	AppOrigin string // Front-end origin used in mail links and the websocket origin check
	MFAIssuer string // Optional: issuer shown in authenticator apps (default: squeezy)

	MailerSender   string // Optional: From address for outgoing mail
	MailgunDomain  string // Optional: mailgun sending domain; unset logs mail instead
	MailgunAPIKey  string
	MailgunAPIBase string // Optional: e.g. the EU endpoint

	RedisAddr     string // Optional: enables cross-instance websocket fan-out
	RedisPassword string
	RedisDB       int

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	AuctionSweepInterval time.Duration // Auction status sweep interval (default: 60s)
}

// LoadConfig reads the environment, after loading a .env file if there is one.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseFile:     getEnvOrDefault("DATABASE_FILE", "squeezy.db"),
		PepperFile:       getEnvOrDefault("PEPPER_FILE", "pepper"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:        getEnvDurationOrDefault("JWT_EXPIRES_IN", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:       getEnvDurationOrDefault("JWT_REFRESH_EXPIRES_IN", jwtx.DefaultRefreshTokenTTL),

		AppOrigin: getEnvOrDefault("APP_ORIGIN", "http://localhost:5173"),
		MFAIssuer: getEnvOrDefault("MFA_ISSUER", "squeezy"),

		MailerSender:   getEnvOrDefault("MAILER_SENDER", "Squeezy <no-reply@squeezy.local>"),
		MailgunDomain:  os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey:  os.Getenv("MAILGUN_API_KEY"),
		MailgunAPIBase: os.Getenv("MAILGUN_API_BASE"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AuctionSweepInterval: getEnvDurationOrDefault("AUCTION_SWEEP_INTERVAL", 60*time.Second),
	}
}

func (c Config) IsProd() bool { return c.Env == "prod" }

// tokenSecrets returns the signing secrets. Outside prod a missing secret is
// replaced with a random one, so tokens do not survive a restart.
func (c Config) tokenSecrets() (access, refresh []byte, generated bool, err error) {
	access, refresh = []byte(c.JWTSecret), []byte(c.JWTRefreshSecret)
	if len(access) > 0 && len(refresh) > 0 {
		return access, refresh, false, nil
	}
	if c.IsProd() {
		return nil, nil, false, errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required in prod")
	}

	if len(access) == 0 {
		s, err := cryptox.GenerateToken(cryptox.SecretSize)
		if err != nil {
			return nil, nil, false, fmt.Errorf("generate access secret: %w", err)
		}
		access = []byte(s)
	}
	if len(refresh) == 0 {
		s, err := cryptox.GenerateToken(cryptox.SecretSize)
		if err != nil {
			return nil, nil, false, fmt.Errorf("generate refresh secret: %w", err)
		}
		refresh = []byte(s)
	}
	return access, refresh, true, nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
