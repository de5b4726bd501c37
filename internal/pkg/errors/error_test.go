package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	tests := []struct {
		code   int
		status int
	}{
		{Success, http.StatusOK},
		{ErrInvalidParams, http.StatusBadRequest},
		{ErrSearchProviderNotFound, http.StatusNotFound},
		{ErrSearchNoProviders, http.StatusServiceUnavailable},
		{ErrResearchNotFound, http.StatusNotFound},
		{ErrTimeout, http.StatusGatewayTimeout},
		{99999, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, GetHTTPStatus(tt.code), "code %d", tt.code)
	}

	assert.True(t, IsClientError(ErrResearchInvalidInput))
	assert.True(t, IsServerError(ErrSearchFailed))
	assert.False(t, IsServerError(ErrNotFound))
}

func TestAppError(t *testing.T) {
	base := errors.New("connection refused")

	err := Wrap(base, ErrResearchStorageFailed, "archive")
	require.NotNil(t, err)
	assert.Equal(t, "[4002] Research storage failed: connection refused", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())

	wrapped := fmt.Errorf("collect: %w", err)
	assert.True(t, Is(wrapped, ErrResearchStorageFailed))
	assert.Equal(t, ErrResearchStorageFailed, ExtractCode(wrapped))
	assert.Equal(t, "archive", GetDetails(wrapped))

	assert.Nil(t, Wrap(nil, ErrInternalServer))
	assert.Equal(t, ErrInternalServer, ExtractCode(base))
	assert.Equal(t, "connection refused", GetDetails(base))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, "[2000] Search provider not found: yahoo", NewProviderNotFound("yahoo").Error())
	assert.Equal(t, ErrResearchNotFound, NewResearchNotFound("abc").Code)
	assert.Equal(t, "query: must not be empty", NewValidationError("query", "must not be empty").Details)
	assert.Equal(t, "Invalid parameters: query: required", FormatError(ErrInvalidParams, "query: required"))
}

func TestWrapKeepsOriginalUntouched(t *testing.T) {
	orig := NewResearchNotFound("abc")

	same := Wrap(orig, ErrInternalServer)
	assert.Same(t, orig, same)

	detailed := Wrap(fmt.Errorf("load: %w", orig), ErrInternalServer, "archive missing")
	assert.Equal(t, ErrResearchNotFound, detailed.Code)
	assert.Equal(t, "archive missing", detailed.Details)
	assert.Equal(t, "abc", orig.Details)
}
