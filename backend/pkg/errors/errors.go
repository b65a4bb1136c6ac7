package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeNotFound represents a missing entity or relationship
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConflict represents a lost optimistic-concurrency race
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeIntegrity represents a referential-integrity violation
	ErrorTypeIntegrity ErrorType = "integrity"
	// ErrorTypeValidation represents malformed input rejected before storage
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// Error codes shared with API clients
const (
	CodeEntityNotFound             = "ENTITY_1001"
	CodeEntityCreationFailed       = "ENTITY_1002"
	CodeEntityUpdateFailed         = "ENTITY_1003"
	CodeEntityDeletionFailed       = "ENTITY_1004"
	CodeEntityValidationFailed     = "ENTITY_1005"
	CodeConcurrentModification     = "ENTITY_1006"
	CodeRelationshipNotFound       = "REL_1101"
	CodeRelationshipCreationFailed = "REL_1102"
	CodeQueryExecutionFailed       = "QUERY_1202"
	CodeDatabaseQueryFailed        = "DB_1302"
	CodeValidationFailed           = "VALIDATION_1601"
	CodeInternalError              = "ERROR_9999"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Code      string
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, code, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, CodeDatabaseQueryFailed, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, CodeInternalError, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, CodeInternalError, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, CodeInternalError, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// AsBase finds the first BaseError in the chain, including ones embedded in typed errors
func AsBase(err error) (*BaseError, bool) {
	for err != nil {
		if base, ok := err.(*BaseError); ok {
			return base, true
		}
		if carrier, ok := err.(interface{ Base() *BaseError }); ok {
			return carrier.Base(), true
		}
		err = stderrors.Unwrap(err)
	}
	return nil, false
}

// Base exposes the embedded BaseError of typed errors
func (e *BaseError) Base() *BaseError { return e }

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	base, ok := AsBase(err)
	return ok && base.Type == errType
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// A lost version race succeeds after re-reading the record
	if IsErrorType(err, ErrorTypeConflict) {
		return true
	}
	// Graph connection errors are retryable
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	return false
}

// CodeFor returns the client-facing error code for err
func CodeFor(err error) string {
	if base, ok := AsBase(err); ok && base.Code != "" {
		return base.Code
	}
	return CodeInternalError
}

// HTTPStatus maps an error to the status code an API layer should answer with
func HTTPStatus(err error) int {
	base, ok := AsBase(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch base.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeIntegrity:
		return http.StatusUnprocessableEntity
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeContext:
		return http.StatusGatewayTimeout
	case ErrorTypeGraph:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
