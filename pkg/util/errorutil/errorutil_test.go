package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamErrorCarriesDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamError("failed to create ticket", cause)

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeUpstream, de.Code)
	assert.Equal(t, http.StatusBadGateway, de.HTTPStatus)
	assert.Equal(t, "connection refused", de.Details["error"])
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create ticket: connection refused", err.Error())
}

func TestToDomainErrorWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewForbidden("admin role required"))

	de := ToDomainError(err)
	assert.Equal(t, CodeForbidden, de.Code)
	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(err, CodeNotFound))
}

func TestToDomainErrorFiber(t *testing.T) {
	de := ToDomainError(fiber.NewError(http.StatusNotFound, "Not Found"))
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, "Not Found", de.Message)
}

func TestToDomainErrorUnknown(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}
