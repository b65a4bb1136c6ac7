package graph

import (
	"errors"
	"fmt"

	apperrors "ontology-store/backend/pkg/errors"
)

// ErrTenantRequired is returned before any I/O when an operation carries no tenant id
var ErrTenantRequired = apperrors.NewBaseError(apperrors.ErrorTypeValidation, apperrors.CodeValidationFailed, "tenant id is required", nil)

// ErrEntityNotFound matches every *EntityNotFoundError via errors.Is
var ErrEntityNotFound = errors.New("entity not found")

// EntityNotFoundError is returned by Update when no live entity matches
type EntityNotFoundError struct {
	*apperrors.BaseError
	ID         string
	EntityType string
	TenantID   string
}

func NewEntityNotFound(id, entityType, tenantID string) *EntityNotFoundError {
	return &EntityNotFoundError{
		BaseError: apperrors.NewBaseError(apperrors.ErrorTypeNotFound, apperrors.CodeEntityNotFound,
			fmt.Sprintf("entity %s of type %s not found", id, entityType), nil),
		ID:         id,
		EntityType: entityType,
		TenantID:   tenantID,
	}
}

func (e *EntityNotFoundError) Is(target error) bool { return target == ErrEntityNotFound }

// ConflictError is returned when the stored version differs from the version the caller read
type ConflictError struct {
	*apperrors.BaseError
	ID       string
	TenantID string
	Expected int64
	Actual   int64
}

func NewConflict(id, tenantID string, expected, actual int64) *ConflictError {
	return &ConflictError{
		BaseError: apperrors.NewBaseError(apperrors.ErrorTypeConflict, apperrors.CodeConcurrentModification,
			fmt.Sprintf("entity %s was modified concurrently: expected version %d, stored version %d", id, expected, actual), nil),
		ID:       id,
		TenantID: tenantID,
		Expected: expected,
		Actual:   actual,
	}
}

// EndpointNotFoundError is returned when a relationship endpoint does not exist under the tenant
type EndpointNotFoundError struct {
	*apperrors.BaseError
	FromID   string
	ToID     string
	TenantID string
}

func NewEndpointNotFound(fromID, toID, tenantID string) *EndpointNotFoundError {
	return &EndpointNotFoundError{
		BaseError: apperrors.NewBaseError(apperrors.ErrorTypeIntegrity, apperrors.CodeRelationshipCreationFailed,
			fmt.Sprintf("relationship endpoints %s -> %s not found", fromID, toID), nil),
		FromID:   fromID,
		ToID:     toID,
		TenantID: tenantID,
	}
}
