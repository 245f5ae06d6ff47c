// Package errors defines the structured error types shared across the
// service, including the webhook processing taxonomy and its split into
// hard failures (reject the request) and soft failures (acknowledge the
// webhook but report the problem).
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

// Infrastructure error types.
const (
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
)

// Webhook processing error types.
const (
	// ErrTypeInvalidJSON marks a request body that does not parse as JSON
	ErrTypeInvalidJSON ErrorType = "invalid_json"
	// ErrTypeUnsupportedEvent marks an event type this service does not handle
	ErrTypeUnsupportedEvent ErrorType = "unsupported_event_type"
	// ErrTypeMissingConversationID marks a payload without a conversation id
	ErrTypeMissingConversationID ErrorType = "missing_conversation_id"
	// ErrTypeConfigIncomplete marks mail settings too incomplete to deliver
	ErrTypeConfigIncomplete ErrorType = "configuration_incomplete"
	// ErrTypeAudioFetch marks a failed recording download
	ErrTypeAudioFetch ErrorType = "audio_fetch_failed"
	// ErrTypeDelivery marks a failed report delivery
	ErrTypeDelivery ErrorType = "delivery_error"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// InvalidJSONError creates an error for an unparseable request body
func InvalidJSONError(cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInvalidJSON,
		Message: "Invalid JSON payload",
		Cause:   cause,
	}
}

// UnsupportedEventTypeError creates an error for an event type this
// service does not process
func UnsupportedEventTypeError(eventType string) *AppError {
	return &AppError{
		Type:    ErrTypeUnsupportedEvent,
		Message: "Unsupported event type",
		Context: map[string]interface{}{"event_type": eventType},
	}
}

// MissingConversationIDError creates an error for a payload without a
// conversation id
func MissingConversationIDError() *AppError {
	return &AppError{
		Type:    ErrTypeMissingConversationID,
		Message: "Missing conversation_id in payload",
	}
}

// ConfigIncompleteError creates an error for unusable delivery settings
func ConfigIncompleteError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfigIncomplete,
		Message: msg,
	}
}

// AudioFetchError creates an error for a failed recording download
func AudioFetchError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeAudioFetch,
		Message: msg,
		Cause:   cause,
	}
}

// DeliveryError creates an error for a failed report delivery
func DeliveryError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeDelivery,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// IsSoft reports whether err is a degradation the webhook should absorb.
// Soft failures are acknowledged with HTTP 200 so the platform does not
// retry the delivery.
func IsSoft(err error) bool {
	switch GetType(err) {
	case ErrTypeAudioFetch, ErrTypeDelivery:
		return true
	}
	return false
}
