package graph

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "ontology-store/backend/pkg/errors"
)

func TestStoreErrors(t *testing.T) {
	notFound := fmt.Errorf("update failed: %w", NewEntityNotFound("e1", "Project", "t1"))
	assert.ErrorIs(t, notFound, ErrEntityNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(notFound))

	conflict := NewConflict("e1", "t1", 1, 3)
	var target *ConflictError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", conflict), &target))
	assert.Equal(t, int64(3), target.Actual)
	assert.True(t, apperrors.IsRetryable(conflict))
	assert.Equal(t, apperrors.CodeConcurrentModification, apperrors.CodeFor(conflict))
	assert.NotErrorIs(t, conflict, ErrEntityNotFound)

	endpoint := NewEndpointNotFound("a", "b", "t1")
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(endpoint))
	assert.Equal(t, apperrors.CodeRelationshipCreationFailed, apperrors.CodeFor(endpoint))

	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(ErrTenantRequired))
}
