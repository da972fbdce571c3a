package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewAppError(ErrCodeSchema, "bad document")
	assert.Equal(t, "SCHEMA_ERROR: bad document", err.Error())

	err.WithDetails("line 3")
	assert.Equal(t, "SCHEMA_ERROR: bad document (line 3)", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := Wrap(cause, ErrCodeDocument, "failed to load")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestCategorization(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category ErrorCategory
	}{
		{ErrCodeFileNotFound, CategoryDocument},
		{ErrCodeMissingField, CategorySchema},
		{ErrCodeValidation, CategoryValidation},
		{ErrCodeUnresolvedPlaceholder, CategoryResolution},
		{ErrCodeInternalError, CategorySystem},
	}
	for _, tt := range tests {
		err := NewAppError(tt.code, "x")
		assert.Equal(t, tt.category, err.Category, "code %s", tt.code)
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeSelectorSyntax, "bad selector")
	wrapped := fmt.Errorf("outer: %w", appErr)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeSelectorSyntax, got.Code)

	plain := GetAppError(errors.New("plain"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrCodeInternalError, plain.Code)
}

func TestCircularInheritanceMessage(t *testing.T) {
	err := CircularInheritanceError([]string{"a.yaml", "b.yaml", "a.yaml"})
	assert.Contains(t, err.Message, "a.yaml -> b.yaml -> a.yaml")
}

func TestUnresolvedPlaceholderSuggestion(t *testing.T) {
	err := UnresolvedPlaceholderError("Colr", []string{"Color", "Mood"}, []string{"Color"})
	assert.Contains(t, err.Message, "Colr")
	assert.Contains(t, err.Details, `did you mean "Color"`)
	assert.Contains(t, err.Details, "Mood")
}

func TestDuplicateKeyErrorNamesSources(t *testing.T) {
	err := DuplicateKeyError("Color", "red", []string{"a.yaml", "b.yaml"})
	assert.Equal(t, ErrCodeDuplicateKey, err.Code)
	assert.Contains(t, err.Details, "a.yaml, b.yaml")
}
