package signature

import (
	"time"
)

// DefaultTolerance is the maximum accepted age of a signed request when no
// tolerance is configured.
const DefaultTolerance = 30 * time.Minute

// Config holds the settings for signature verification
type Config struct {
	// Secret is the shared HMAC key (required)
	Secret string

	// Header is the HTTP header carrying the signature
	Header string

	// Tolerance is the maximum accepted age of a signed request.
	// The boundary itself is accepted.
	Tolerance time.Duration

	// Now supplies the current time and exists for tests.
	// Defaults to time.Now.
	Now func() time.Time
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.Header == "" {
		c.Header = "X-Webhook-Signature"
	}

	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}

	if c.Now == nil {
		c.Now = time.Now
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Secret == "" {
		return NewValidationError("secret is required")
	}

	if c.Header == "" {
		return NewValidationError("header is required")
	}

	if c.Tolerance <= 0 {
		return NewValidationError("tolerance must be positive, got %v", c.Tolerance)
	}

	return nil
}
