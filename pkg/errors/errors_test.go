package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationCarriesViolations(t *testing.T) {
	err := Validation("invalid student", FieldViolation{Field: "name", Rule: "full_name"}, FieldViolation{Field: "guardian_tax_id", Rule: "tax_id_digits"})

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, err.HasRule("name", "full_name"))
	assert.False(t, err.HasRule("name", "required"))
	assert.Contains(t, err.Error(), "guardian_tax_id:tax_id_digits")
	assert.Empty(t, ErrValidation.Details)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update: %w", Clone(ErrNotFound, "student not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("boom")
	appErr := FromError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, plain)

	typed := Clone(ErrConflict, "duplicate")
	assert.Same(t, typed, FromError(typed))
	assert.Nil(t, FromError(nil))
}
