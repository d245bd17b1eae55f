package app

import (
	"crypto/sha256"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/totpx"
)

type Config struct {
	Issuer         string // Required: issuer claim for tokens
	BootstrapToken string // Optional: if set, required to perform bootstrap

	AccessTokenSecret  string // Required: HMAC secret for access tokens
	RefreshTokenSecret string // Required: HMAC secret for refresh tokens
	MFATokenSecret     string // Required: HMAC secret for MFA tokens
	MFAEncryptionKey   string // Required: key material protecting stored TOTP secrets

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 7 days)
	MFATokenTTL     time.Duration // Optional: MFA token lifetime (default: 5m)
	ResetTokenTTL   time.Duration // Optional: reset token lifetime (default: 1h)

	LockoutThreshold int           // Optional: failed attempts before lockout (default: 3)
	LockoutDuration  time.Duration // Optional: lockout duration (default: 30m)

	TOTPPeriodSeconds int // Optional: TOTP step length in seconds (default: 30)
	TOTPDigits        int // Optional: TOTP code length (default: 6)
	TOTPWindow        int // Optional: accepted steps of clock skew each way (default: 1)

	Argon2Memory      int // Optional: argon2id memory cost in KiB (default: 19456)
	Argon2Iterations  int // Optional: argon2id time cost (default: 2)
	Argon2Parallelism int // Optional: argon2id lanes (default: 1)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./staffdesk.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "staffdesk"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		AccessTokenSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshTokenSecret: os.Getenv("AUTH_REFRESH_SECRET"),
		MFATokenSecret:     os.Getenv("AUTH_MFA_SECRET"),
		MFAEncryptionKey:   os.Getenv("AUTH_MFA_ENCRYPTION_KEY"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),
		MFATokenTTL:     getEnvDurationOrDefault("AUTH_MFA_TTL", 5*time.Minute),
		ResetTokenTTL:   getEnvDurationOrDefault("AUTH_RESET_TTL", 1*time.Hour),

		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 3),
		LockoutDuration:  getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", 30*time.Minute),

		TOTPPeriodSeconds: getEnvIntOrDefault("AUTH_TOTP_PERIOD", totpx.DefaultPeriodSeconds),
		TOTPDigits:        getEnvIntOrDefault("AUTH_TOTP_DIGITS", totpx.DefaultDigits),
		TOTPWindow:        getEnvIntOrDefault("AUTH_TOTP_WINDOW", totpx.DefaultWindow),

		Argon2Memory:      getEnvIntOrDefault("AUTH_ARGON2_MEMORY", 19*1024),
		Argon2Iterations:  getEnvIntOrDefault("AUTH_ARGON2_ITERATIONS", 2),
		Argon2Parallelism: getEnvIntOrDefault("AUTH_ARGON2_PARALLELISM", 1),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "staffdesk.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// Validate rejects configurations that would start a service nobody can use
// safely. Token secrets have no defaults on purpose.
func (cfg Config) Validate() error {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" || cfg.MFATokenSecret == "" {
		return errors.New("AUTH_ACCESS_SECRET, AUTH_REFRESH_SECRET, and AUTH_MFA_SECRET must all be set")
	}
	if cfg.MFAEncryptionKey == "" {
		return errors.New("AUTH_MFA_ENCRYPTION_KEY must be set")
	}
	return nil
}

// TOTPOptions maps the configured TOTP tuning onto the verifier options.
func (cfg Config) TOTPOptions() totpx.Options {
	return totpx.Options{
		PeriodSeconds: uint(cfg.TOTPPeriodSeconds),
		Digits:        cfg.TOTPDigits,
		Window:        uint(cfg.TOTPWindow),
	}
}

// Argon2Params maps the configured hashing cost onto the hasher parameters.
// Salt and key lengths are not operator-tunable.
func (cfg Config) Argon2Params() cryptox.Argon2Params {
	p := cryptox.DefaultArgon2Params()
	p.Memory = uint32(cfg.Argon2Memory)
	p.Iterations = uint32(cfg.Argon2Iterations)
	p.Parallelism = uint8(cfg.Argon2Parallelism)
	return p
}

// DeriveMFAEncryptionKey stretches the configured key material into the
// fixed-size AES key the secret cipher expects, so operators can supply a
// passphrase of any length.
func (cfg Config) DeriveMFAEncryptionKey() []byte {
	sum := sha256.Sum256([]byte(cfg.MFAEncryptionKey))
	return sum[:]
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

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
