package signature

import "fmt"

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// Kind classifies a signature verification failure
type Kind string

const (
	// KindMissing marks a request without the signature header
	KindMissing Kind = "missing_signature"
	// KindMalformed marks a header that cannot be parsed into its elements
	KindMalformed Kind = "malformed_signature"
	// KindExpired marks a request older than the tolerance window
	KindExpired Kind = "request_expired"
	// KindMismatch marks a digest that does not match the body
	KindMismatch Kind = "invalid_signature"
)

// VerificationError represents a signature verification failure
type VerificationError struct {
	Kind    Kind
	Message string
}

func (e VerificationError) Error() string {
	return fmt.Sprintf("signature verification failed: %s", e.Message)
}

// NewVerificationError creates a new verification error
func NewVerificationError(kind Kind, format string, args ...interface{}) VerificationError {
	return VerificationError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err is a VerificationError of the given kind
func IsKind(err error, kind Kind) bool {
	verr, ok := err.(VerificationError)
	return ok && verr.Kind == kind
}
