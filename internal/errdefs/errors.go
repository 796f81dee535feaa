package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNotFound indicates an unknown configuration field or setting name
	ErrTypeNotFound ErrorType = iota
	// ErrTypeValidation indicates a value failed a type or length constraint
	ErrTypeValidation
	// ErrTypePersistence indicates the persistence backend rejected a read or write
	ErrTypePersistence
	// ErrTypePlatformRequest indicates the network stack rejected a connect/enable request
	ErrTypePlatformRequest
	// ErrTypeUnready indicates a network interface was not present in time
	ErrTypeUnready
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypePersistence:
		return "Persistence Failure"
	case ErrTypePlatformRequest:
		return "Platform Request Failure"
	case ErrTypeUnready:
		return "Unready"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ModuleError is the error returned by the configuration store, the settings
// registry and the connectivity manager.
type ModuleError struct {
	Type    ErrorType // Category of error
	Name    string    // Field, setting or interface the error refers to (optional)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ModuleError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Type.String())
	sb.WriteString(": ")
	if e.Name != "" {
		sb.WriteString(e.Name)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&sb, " (caused by: %v)", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *ModuleError) Unwrap() error {
	return e.Err
}

// NewNotFound creates an error for an unknown field or setting name
func NewNotFound(name string) *ModuleError {
	return &ModuleError{
		Type:    ErrTypeNotFound,
		Name:    name,
		Message: "no such field or setting",
	}
}

// NewValidationError creates a validation error
func NewValidationError(name, message string) *ModuleError {
	return &ModuleError{
		Type:    ErrTypeValidation,
		Name:    name,
		Message: message,
	}
}

// NewPersistenceError creates a persistence backend error
func NewPersistenceError(name, message string, err error) *ModuleError {
	return &ModuleError{
		Type:    ErrTypePersistence,
		Name:    name,
		Message: message,
		Err:     err,
	}
}

// NewPlatformRequestError creates an error for a request rejected by the network stack
func NewPlatformRequestError(iface, message string, err error) *ModuleError {
	return &ModuleError{
		Type:    ErrTypePlatformRequest,
		Name:    iface,
		Message: message,
		Err:     err,
	}
}

// NewUnreadyError creates an error for an interface that never became present
func NewUnreadyError(iface, message string) *ModuleError {
	return &ModuleError{
		Type:    ErrTypeUnready,
		Name:    iface,
		Message: message,
	}
}

func isType(err error, et ErrorType) bool {
	var modErr *ModuleError
	if errors.As(err, &modErr) {
		return modErr.Type == et
	}
	return false
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return isType(err, ErrTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsPersistenceError checks if an error is a persistence failure
func IsPersistenceError(err error) bool {
	return isType(err, ErrTypePersistence)
}

// IsPlatformRequestError checks if an error is a rejected platform request
func IsPlatformRequestError(err error) bool {
	return isType(err, ErrTypePlatformRequest)
}

// IsUnready checks if an error is an interface readiness timeout
func IsUnready(err error) bool {
	return isType(err, ErrTypeUnready)
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) string {
	var modErr *ModuleError
	if !errors.As(err, &modErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch modErr.Type {
	case ErrTypeNotFound:
		return strings.Join([]string{
			"The requested name is not known.",
			"Troubleshooting:",
			"  • Run 'puara get --help' to list the configuration fields",
			"  • Setting names are case sensitive",
		}, "\n")

	case ErrTypeValidation:
		return "The value is invalid for this field. Check the error message for details."

	case ErrTypePersistence:
		return strings.Join([]string{
			"The value could not be written to persistent storage.",
			"Troubleshooting:",
			"  • Check that the settings database is writable",
			"  • The in-memory value was left unchanged; retry the command",
		}, "\n")

	case ErrTypePlatformRequest:
		return strings.Join([]string{
			"The network stack rejected the request.",
			"Troubleshooting:",
			"  • Check the SSID and password with 'puara get'",
			"  • Retry with 'puara wifi start'; requests are not retried automatically",
		}, "\n")

	case ErrTypeUnready:
		return strings.Join([]string{
			"The WiFi interfaces did not come up in time.",
			"Troubleshooting:",
			"  • Check that the WiFi driver is loaded",
			"  • Increase daemon.ready_timeout in config.yaml",
		}, "\n")

	default:
		return "An error occurred. Please check the error message for details."
	}
}
