// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies engine failures.
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation_error"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeExtraction          ErrorType = "extraction_failure"
	ErrorTypeAnalyzerUnavailable ErrorType = "analyzer_unavailable"
	ErrorTypePersistence         ErrorType = "persistence_failure"
	ErrorTypeConflict            ErrorType = "conflict"
	ErrorTypeTimeout             ErrorType = "timeout"
)

// AppError is the engine's error envelope.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError flags malformed caller input.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError flags a missing entity.
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewExtractionError flags malformed or empty chapter text. Callers skip
// that chapter's contribution and continue the corpus walk.
func NewExtractionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeExtraction, message, originalError)
}

// NewAnalyzerUnavailableError flags a qualitative analyzer timeout, error
// or malformed response. Never fatal: checks degrade to rule-based issues.
func NewAnalyzerUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeAnalyzerUnavailable, message, originalError)
}

// NewPersistenceError flags a corpus reader or mutation sink failure. Fatal
// for the single operation in progress.
func NewPersistenceError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePersistence, message, originalError)
}

// NewConflictError flags a concurrent-mutation conflict.
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

func isType(err error, t ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == t
	}
	return false
}

// IsValidationError checks for a validation error.
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFoundError checks for a missing-entity error.
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsExtractionError checks for an extraction failure.
func IsExtractionError(err error) bool { return isType(err, ErrorTypeExtraction) }

// IsAnalyzerUnavailable checks for a degraded-analyzer error.
func IsAnalyzerUnavailable(err error) bool { return isType(err, ErrorTypeAnalyzerUnavailable) }

// IsPersistenceError checks for a persistence failure.
func IsPersistenceError(err error) bool { return isType(err, ErrorTypePersistence) }

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeExtraction:
		return "EXTRACTION_FAILURE"
	case ErrorTypeAnalyzerUnavailable:
		return "ANALYZER_UNAVAILABLE"
	case ErrorTypePersistence:
		return "PERSISTENCE_FAILURE"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps an existing error, preserving an AppError's type.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
