package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "default_secret"

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	OTP      OTPConfig
	Mail     MailConfig
	Redis    RedisConfig
	Security SecurityConfig
	Seed     SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// OTPConfig holds one-time code settings
type OTPConfig struct {
	Lifetime time.Duration
}

// MailConfig holds the notification chain settings, one group per channel
type MailConfig struct {
	ChannelTimeout time.Duration
	TotalBudget    time.Duration
	SES            SESConfig
	API            MailAPIConfig
	SMTP           SMTPConfig
	SMTP2          SMTPConfig
}

// SESConfig configures the AWS SES channel
type SESConfig struct {
	Region string
	From   string
}

// MailAPIConfig configures the HTTP transactional mail channel
type MailAPIConfig struct {
	BaseURL  string
	Key      string
	From     string
	FromName string
}

// SMTPConfig configures an SMTP relay channel
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// RedisConfig holds Redis configuration. An empty URL disables Redis.
type RedisConfig struct {
	URL string
}

// SecurityConfig holds abuse-control and disclosure settings
type SecurityConfig struct {
	AttemptLimitMax            int
	AttemptLimitWindow         time.Duration
	RecoveryRevealUnknownEmail bool
	BcryptCost                 int

	// Per-IP request limits per minute
	GeneralRateLimit int
	AuthRateLimit    int
	StrictRateLimit  int
}

// SeedConfig holds the bootstrap admin account. No password, no seed.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using environment variables")
	}

	config, err := FromEnv()
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", config.AppMode)
	return config, nil
}

// FromEnv builds the configuration from the process environment only
func FromEnv() (*Config, error) {
	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		OTP:      loadOTPConfig(),
		Mail:     loadMailConfig(),
		Redis:    RedisConfig{URL: getEnv("REDIS_URL", "")},
		Security: loadSecurityConfig(),
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@localhost"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	if config.IsProd() && config.JWT.Secret == defaultJWTSecret {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}
	if config.JWT.AccessTokenMins <= 0 {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_MINUTES: %d", config.JWT.AccessTokenMins)
	}

	return config, nil
}

// modePrefix returns the env prefix for mode-specific settings
func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "itp_usermgmt"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	return JWTConfig{
		Secret:          getEnv(modePrefix(mode)+"JWT_SECRET", defaultJWTSecret),
		AccessTokenMins: getEnvInt("ACCESS_TOKEN_MINUTES", 60),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	return CookieConfig{
		Secure:   getEnvBool(modePrefix(mode)+"COOKIE_SECURE", mode == "prod"),
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadOTPConfig() OTPConfig {
	return OTPConfig{
		Lifetime: getEnvDuration("OTP_LIFETIME", 10*time.Minute),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		ChannelTimeout: getEnvDuration("MAIL_CHANNEL_TIMEOUT", 10*time.Second),
		TotalBudget:    getEnvDuration("MAIL_TOTAL_BUDGET", 25*time.Second),
		SES: SESConfig{
			Region: getEnv("SES_REGION", ""),
			From:   getEnv("SES_FROM", ""),
		},
		API: MailAPIConfig{
			BaseURL:  getEnv("MAIL_API_URL", "https://api.brevo.com"),
			Key:      getEnv("MAIL_API_KEY", ""),
			From:     getEnv("MAIL_API_FROM", ""),
			FromName: getEnv("MAIL_FROM_NAME", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", ""),
			FromName: getEnv("MAIL_FROM_NAME", ""),
		},
		SMTP2: SMTPConfig{
			Host:     getEnv("SMTP2_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP2_PORT", 587),
			User:     getEnv("SMTP2_USER", ""),
			Password: getEnv("SMTP2_PASS", ""),
			From:     getEnv("SMTP2_FROM", ""),
			FromName: getEnv("MAIL_FROM_NAME", ""),
		},
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AttemptLimitMax:            getEnvInt("ATTEMPT_LIMIT_MAX", 5),
		AttemptLimitWindow:         getEnvDuration("ATTEMPT_LIMIT_WINDOW", 15*time.Minute),
		RecoveryRevealUnknownEmail: getEnvBool("RECOVERY_REVEAL_UNKNOWN_EMAIL", false),
		BcryptCost:                 getEnvInt("BCRYPT_COST", 12),
		GeneralRateLimit:           getEnvInt("RATE_LIMIT_GENERAL", 100),
		AuthRateLimit:              getEnvInt("RATE_LIMIT_AUTH", 5),
		StrictRateLimit:            getEnvInt("RATE_LIMIT_STRICT", 3),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvDuration accepts Go durations ("90s", "15m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("⚠️ Ignoring invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// AccessTokenTTL returns the session token lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenMins) * time.Minute
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		// Default production origins
		return "http://localhost:5173"
	}
	return origins
}
