package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional yaml, toml or json file whose keys are
// overridden by the environment.
const ConfigFileEnv = "FINTRACK_CONFIG"

var (
	validBackends   = []string{"memory", "sqlite", "postgres"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

type Config struct {
	// HTTP and gRPC
	Port     string
	GRPCPort string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresDSN  string
	SeedFile     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	JWTSecret     string
	SessionTTL    time.Duration
	SecureCookies bool

	// Phone sign-in
	OTPTTL      time.Duration
	OTPLength   int
	PhonePrefix string

	// OTP delivery over SMTP
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMSGatewayDomain string
	OTPFallbackEmail string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Discord
	DiscordBotToken  string
	DiscordChannelID string

	// HTTP tuning
	RateLimitPerMinute     int
	AuthRateLimitPerMinute int
	FeedLimit              int

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":                        "8081",
	"GRPC_PORT":                   "",
	"DATA_BACKEND":                "memory",
	"SQLITE_DB_PATH":              "./data/fintrack.db",
	"POSTGRES_DSN":                "",
	"SEED_FILE":                   "",
	"AMQP_URL":                    "",
	"AMQP_EXCHANGE":               "fintrack",
	"AMQP_QUEUE":                  "transaction_events",
	"JWT_SECRET":                  "",
	"SESSION_TTL":                 "168h",
	"SECURE_COOKIES":              "false",
	"OTP_TTL":                     "5m",
	"OTP_LENGTH":                  "6",
	"PHONE_PREFIX":                "+91",
	"SMTP_HOST":                   "",
	"SMTP_PORT":                   "587",
	"SMTP_USERNAME":               "",
	"SMTP_PASSWORD":               "",
	"SMTP_FROM":                   "",
	"SMS_GATEWAY_DOMAIN":          "",
	"OTP_FALLBACK_EMAIL":          "",
	"GOOGLE_SPREADSHEET_ID":       "",
	"GOOGLE_SHEET_NAME":           "Transactions",
	"GOOGLE_SERVICE_ACCOUNT_JSON": "",
	"GOOGLE_SERVICE_ACCOUNT_FILE": "",
	"DISCORD_BOT_TOKEN":           "",
	"DISCORD_CHANNEL_ID":          "",
	"RATE_LIMIT_PER_MINUTE":       "60",
	"AUTH_RATE_LIMIT_PER_MINUTE":  "10",
	"FEED_LIMIT":                  "50",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "text",
}

// Load reads configuration from the environment and, when FINTRACK_CONFIG is
// set, from that file. A file that cannot be read is logged and skipped.
func Load() *Config {
	cfg, err := LoadFrom(os.Getenv(ConfigFileEnv))
	if err != nil {
		slog.Warn("Ignoring unreadable config file", "path", os.Getenv(ConfigFileEnv), "error", err)
		cfg, _ = LoadFrom("")
	}
	return cfg
}

// LoadFrom builds a Config from defaults, the optional file at path and the
// environment, in increasing order of precedence.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:     v.GetString("PORT"),
		GRPCPort: v.GetString("GRPC_PORT"),

		DataBackend:  strings.ToLower(v.GetString("DATA_BACKEND")),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		PostgresDSN:  v.GetString("POSTGRES_DSN"),
		SeedFile:     v.GetString("SEED_FILE"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		SessionTTL:    getDuration(v, "SESSION_TTL"),
		SecureCookies: getBool(v, "SECURE_COOKIES"),

		OTPTTL:      getDuration(v, "OTP_TTL"),
		OTPLength:   getInt(v, "OTP_LENGTH"),
		PhonePrefix: v.GetString("PHONE_PREFIX"),

		SMTPHost:         v.GetString("SMTP_HOST"),
		SMTPPort:         getInt(v, "SMTP_PORT"),
		SMTPUsername:     v.GetString("SMTP_USERNAME"),
		SMTPPassword:     v.GetString("SMTP_PASSWORD"),
		SMTPFrom:         v.GetString("SMTP_FROM"),
		SMSGatewayDomain: v.GetString("SMS_GATEWAY_DOMAIN"),
		OTPFallbackEmail: v.GetString("OTP_FALLBACK_EMAIL"),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		DiscordBotToken:  v.GetString("DISCORD_BOT_TOKEN"),
		DiscordChannelID: v.GetString("DISCORD_CHANNEL_ID"),

		RateLimitPerMinute:     getInt(v, "RATE_LIMIT_PER_MINUTE"),
		AuthRateLimitPerMinute: getInt(v, "AUTH_RATE_LIMIT_PER_MINUTE"),
		FeedLimit:              getInt(v, "FEED_LIMIT"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if msg := validatePort("port", c.Port); msg != "" {
		errors = append(errors, msg)
	}
	if c.GRPCPort != "" {
		if msg := validatePort("gRPC port", c.GRPCPort); msg != "" {
			errors = append(errors, msg)
		} else if c.GRPCPort == c.Port {
			errors = append(errors, fmt.Sprintf("gRPC port %s must differ from HTTP port", c.GRPCPort))
		}
	}

	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch {
	case c.JWTSecret == "":
		errors = append(errors, "JWT_SECRET is required")
	case isPlaceholderSecret(c.JWTSecret):
		errors = append(errors, "JWT_SECRET is a published placeholder, generate a random secret")
	case len(c.JWTSecret) < 16:
		errors = append(errors, "JWT secret must be at least 16 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.OTPTTL < 30*time.Second || c.OTPTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid OTP TTL %v: must be between 30s and 1h", c.OTPTTL))
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errors = append(errors, fmt.Sprintf("invalid OTP length %d: must be between 4 and 10", c.OTPLength))
	}
	if !strings.HasPrefix(c.PhonePrefix, "+") || len(c.PhonePrefix) < 2 {
		errors = append(errors, fmt.Sprintf("invalid phone prefix '%s': must look like +91", c.PhonePrefix))
	}

	if c.SMTPHost != "" {
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
		if _, err := mail.ParseAddress(c.SMTPFrom); err != nil {
			errors = append(errors, fmt.Sprintf("invalid SMTP from address '%s'", c.SMTPFrom))
		}
		if c.SMSGatewayDomain == "" && c.OTPFallbackEmail == "" {
			errors = append(errors, "either SMS_GATEWAY_DOMAIN or OTP_FALLBACK_EMAIL must be set when SMTP is configured")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if (c.DiscordBotToken == "") != (c.DiscordChannelID == "") {
		errors = append(errors, "DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.AuthRateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1 per minute", c.AuthRateLimitPerMinute))
	}
	if c.FeedLimit < 1 || c.FeedLimit > 500 {
		errors = append(errors, fmt.Sprintf("invalid feed limit %d: must be between 1 and 500", c.FeedLimit))
	}

	if !oneOf(c.LogLevel, validLogLevels) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !oneOf(c.LogFormat, validLogFormats) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsEnabled reports whether the worker should mirror events to Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// DiscordEnabled reports whether the worker should post to Discord.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// MailEnabled reports whether OTP codes go out over SMTP instead of the log.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func validatePort(name, value string) string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': must be a number", name, value)
	}
	if port < 1 || port > 65535 {
		return fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)
	}
	return ""
}

// placeholderSecrets have appeared in published config and must never sign sessions.
var placeholderSecrets = []string{"fintrack-dev-secret-change-me", "change-me-to-a-random-secret"}

func isPlaceholderSecret(secret string) bool {
	return oneOf(strings.ToLower(strings.TrimSpace(secret)), placeholderSecrets)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// getInt falls back to the default when the value does not parse.
func getInt(v *viper.Viper, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return i
	}
	i, _ := strconv.Atoi(fmt.Sprint(defaults[key]))
	return i
}

func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}

func getBool(v *viper.Viper, key string) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key))); err == nil {
		return b
	}
	b, _ := strconv.ParseBool(fmt.Sprint(defaults[key]))
	return b
}
