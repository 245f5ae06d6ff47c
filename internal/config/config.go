// Package config provides configuration management for the webhook receiver.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path (default: stdout)
//
// Webhook Verification:
//   - WEBHOOK_SECRET: Shared HMAC secret for signature verification (required)
//   - SIGNATURE_HEADER: Header carrying the signature (default: X-Webhook-Signature)
//   - SIGNATURE_TOLERANCE: Maximum age of a signed request (default: 30m)
//   - MAX_BODY_BYTES: Request body size cap in bytes (default: 1048576)
//
// Voice Platform API:
//   - VOICE_API_BASE_URL: Platform API base URL (default: https://api.elevenlabs.io)
//   - VOICE_API_KEY: Platform API key for audio downloads
//   - VOICE_API_KEY_HEADER: Header carrying the API key (default: xi-api-key)
//   - AUDIO_FETCH_TIMEOUT: Timeout for one audio download (default: 30s)
//
// Mail Delivery:
//   - SMTP_HOST: SMTP server host (required for delivery)
//   - SMTP_PORT: SMTP server port (default: 587)
//   - SMTP_USERNAME: SMTP auth username
//   - SMTP_PASSWORD: SMTP auth password
//   - SMTP_FROM: Sender address (required for delivery)
//   - SMTP_FROM_NAME: Sender display name (default: Voice Call Reports)
//   - SMTP_TO: Recipient address (required for delivery)
//   - SMTP_USE_TLS: Use STARTTLS (default: true)
//   - SMTP_USE_SSL: Use implicit TLS instead of STARTTLS (default: false)
//   - SMTP_SKIP_VERIFY: Skip TLS certificate verification (default: false)
//   - SMTP_TIMEOUT: Timeout for SMTP dial and I/O (default: 30s)
//   - MAIL_HEALTH_SCHEDULE: Cron spec for connectivity checks (default: @every 5m)
//
// Example usage:
//
//	// Load configuration from environment
//	config := config.Load()
//
//	// Validate configuration
//	if err := config.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//
//	// Use configuration
//	server := &http.Server{
//		Addr: ":" + config.Port,
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the webhook receiver.
// All string fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use. The typed accessors
// (SignatureTolerance, MaxBodyBytes, ...) assume Validate has passed.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	LogFile  string // Log file path, empty for stdout

	// Webhook verification
	WebhookSecret      string // Shared HMAC secret (required)
	SignatureHeader    string // Header carrying the signature
	SignatureTolerance string // Maximum signed-request age (e.g. "30m")
	MaxBodyBytes       string // Request body cap in bytes

	// Voice platform API
	VoiceAPIBaseURL   string // Platform API base URL
	VoiceAPIKey       string // API key for audio downloads
	VoiceAPIKeyHeader string // Header carrying the API key
	AudioFetchTimeout string // Timeout for one audio download

	// Mail delivery
	SMTPHost           string // SMTP server host
	SMTPPort           string // SMTP server port
	SMTPUsername       string // SMTP auth username
	SMTPPassword       string // SMTP auth password
	SMTPFrom           string // Sender address
	SMTPFromName       string // Sender display name
	SMTPTo             string // Recipient address
	SMTPUseTLS         bool   // Use STARTTLS
	SMTPUseSSL         bool   // Use implicit TLS instead of STARTTLS
	SMTPSkipVerify     bool   // Skip TLS certificate verification
	SMTPTimeout        string // Timeout for SMTP dial and I/O
	MailHealthSchedule string // Cron spec for connectivity checks
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding
// default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Webhook verification
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		SignatureHeader:    getEnv("SIGNATURE_HEADER", "X-Webhook-Signature"),
		SignatureTolerance: getEnv("SIGNATURE_TOLERANCE", "30m"),
		MaxBodyBytes:       getEnv("MAX_BODY_BYTES", "1048576"),

		// Voice platform API
		VoiceAPIBaseURL:   getEnv("VOICE_API_BASE_URL", "https://api.elevenlabs.io"),
		VoiceAPIKey:       getEnv("VOICE_API_KEY", ""),
		VoiceAPIKeyHeader: getEnv("VOICE_API_KEY_HEADER", "xi-api-key"),
		AudioFetchTimeout: getEnv("AUDIO_FETCH_TIMEOUT", "30s"),

		// Mail delivery
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:           getEnv("SMTP_FROM", ""),
		SMTPFromName:       getEnv("SMTP_FROM_NAME", "Voice Call Reports"),
		SMTPTo:             getEnv("SMTP_TO", ""),
		SMTPUseTLS:         getBoolEnv("SMTP_USE_TLS", true),
		SMTPUseSSL:         getBoolEnv("SMTP_USE_SSL", false),
		SMTPSkipVerify:     getBoolEnv("SMTP_SKIP_VERIFY", false),
		SMTPTimeout:        getEnv("SMTP_TIMEOUT", "30s"),
		MailHealthSchedule: getEnv("MAIL_HEALTH_SCHEDULE", "@every 5m"),
	}
}

// getEnv retrieves an environment variable value or returns a default value
// if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a
// default value when the variable is unset or unparseable.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs validation on the configuration to ensure all required
// fields are present and all values are valid.
//
// This method checks:
//   - Required fields (WEBHOOK_SECRET)
//   - Field format validation (ports, durations, sizes)
//
// Mail and voice API settings are not required here. Their absence degrades
// individual webhook deliveries at runtime instead of preventing startup.
//
// Returns:
//   - error: A descriptive error if validation fails, nil if configuration is valid
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET environment variable is required")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.SignatureHeader == "" {
		return fmt.Errorf("SIGNATURE_HEADER must not be empty")
	}

	if tolerance, err := time.ParseDuration(c.SignatureTolerance); err != nil || tolerance <= 0 {
		return fmt.Errorf("SIGNATURE_TOLERANCE must be a positive duration (e.g., '30m')")
	}

	if max, err := strconv.ParseInt(c.MaxBodyBytes, 10, 64); err != nil || max < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be a positive number of bytes")
	}

	if !strings.HasPrefix(c.VoiceAPIBaseURL, "http://") && !strings.HasPrefix(c.VoiceAPIBaseURL, "https://") {
		return fmt.Errorf("VOICE_API_BASE_URL must start with http:// or https://")
	}

	if _, err := time.ParseDuration(c.AudioFetchTimeout); err != nil {
		return fmt.Errorf("AUDIO_FETCH_TIMEOUT must be a valid duration (e.g., '30s')")
	}

	if port, err := strconv.Atoi(c.SMTPPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port number")
	}

	if _, err := time.ParseDuration(c.SMTPTimeout); err != nil {
		return fmt.Errorf("SMTP_TIMEOUT must be a valid duration (e.g., '30s')")
	}

	if c.SMTPUseTLS && c.SMTPUseSSL {
		return fmt.Errorf("SMTP_USE_TLS and SMTP_USE_SSL are mutually exclusive")
	}

	return nil
}

// MailConfigured reports whether the delivery settings are complete enough
// to attempt sending mail.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != "" && c.SMTPTo != ""
}

// AudioConfigured reports whether audio downloads can be attempted.
func (c *Config) AudioConfigured() bool {
	return c.VoiceAPIKey != ""
}

// GetSignatureTolerance returns the parsed signature tolerance window.
func (c *Config) GetSignatureTolerance() time.Duration {
	d, _ := time.ParseDuration(c.SignatureTolerance)
	return d
}

// GetMaxBodyBytes returns the parsed request body cap.
func (c *Config) GetMaxBodyBytes() int64 {
	n, _ := strconv.ParseInt(c.MaxBodyBytes, 10, 64)
	return n
}

// GetAudioFetchTimeout returns the parsed audio download timeout.
func (c *Config) GetAudioFetchTimeout() time.Duration {
	d, _ := time.ParseDuration(c.AudioFetchTimeout)
	return d
}

// GetSMTPTimeout returns the parsed SMTP timeout.
func (c *Config) GetSMTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.SMTPTimeout)
	return d
}
