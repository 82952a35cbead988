package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesPredefined(t *testing.T) {
	err := Clone(ErrNotFound, "document not found")
	require.True(t, stdErrors.Is(err, ErrNotFound))
	require.False(t, stdErrors.Is(err, ErrConflict))
	assert.Equal(t, "document not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestInvalidTransitionCarriesCurrentStatus(t *testing.T) {
	err := InvalidTransition("approved", "document already reviewed")
	require.True(t, stdErrors.Is(err, ErrInvalidTransition))
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "approved", err.Details["current_status"])
	assert.Nil(t, ErrInvalidTransition.Details)
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := fmt.Errorf("save snapshot: %w", sql.ErrConnDone)
	err := Persistence(cause, "")
	require.True(t, stdErrors.Is(err, ErrPersistence))
	require.True(t, stdErrors.Is(err, sql.ErrConnDone))
	assert.Equal(t, ErrPersistence.Message, err.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))

	typed := Clone(ErrValidation, "title is required")
	assert.Same(t, typed, FromError(fmt.Errorf("create: %w", typed)))
}
