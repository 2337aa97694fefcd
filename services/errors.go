package services

import (
	"errors"
	"fmt"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/firebase"
	"github.com/dsz/skyfleet/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound         = NewDomainError(ErrorTypeNotFound, "User not found", nil)
	ErrPilotNotFound        = NewDomainError(ErrorTypeNotFound, "Pilot not found", nil)
	ErrDroneNotFound        = NewDomainError(ErrorTypeNotFound, "Drone not found", nil)
	ErrMissionNotFound      = NewDomainError(ErrorTypeNotFound, "Mission not found", nil)
	ErrFlightLogNotFound    = NewDomainError(ErrorTypeNotFound, "Flight Log not found", nil)
	ErrNotificationNotFound = NewDomainError(ErrorTypeNotFound, "Notification not found", nil)

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "Validation failed", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "Authentication required", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "Invalid or expired token", nil)

	// Permission Errors
	ErrForbidden = NewDomainError(ErrorTypeForbidden, authz.ForbiddenMessage, nil)

	// Conflict Errors
	ErrDuplicateEmail  = NewDomainError(ErrorTypeConflict, "A user with this email already exists", nil)
	ErrDuplicateSerial = NewDomainError(ErrorTypeConflict, "Drone with this serial already exists", nil)
	ErrDuplicateID     = NewDomainError(ErrorTypeConflict, "A document with this id already exists", nil)

	// Internal Errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "An unexpected error occurred", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// PublicMessage returns the client-facing message of a domain error
func PublicMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ErrInternal.Message
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// notFound returns a fresh copy of a not-found sentinel wrapping cause
func notFound(sentinel *DomainError, cause error) error {
	return NewDomainError(ErrorTypeNotFound, sentinel.Message, cause)
}

// translate converts store, policy and provider errors into domain errors.
// notFoundErr is used for repositories.ErrNotFound.
func translate(err error, notFoundErr *DomainError, action string) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(notFoundErr, err)
	case errors.Is(err, repositories.ErrAlreadyExists):
		return NewDomainError(ErrorTypeConflict, ErrDuplicateID.Message, err)
	case errors.Is(err, firebase.ErrEmailExists):
		return NewDomainError(ErrorTypeConflict, ErrDuplicateEmail.Message, err)
	case errors.Is(err, authz.ErrUnauthenticated):
		return NewDomainError(ErrorTypeUnauthorized, ErrUnauthorized.Message, err)
	case errors.Is(err, authz.ErrForbidden):
		return NewDomainError(ErrorTypeForbidden, authz.ForbiddenMessage, err)
	}
	return WrapInternal("failed to "+action, err)
}
