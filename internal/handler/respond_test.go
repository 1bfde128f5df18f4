package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warefront/api/internal/service"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrOrderNotFound, http.StatusNotFound, "NOT_FOUND"},
		{service.ErrInvalidQuantity, http.StatusBadRequest, "VALIDATION_ERROR"},
		{service.ErrAlreadyClaimed, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("SKU-1001: %w", service.ErrInsufficientStock), http.StatusConflict, "CONFLICT"},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, c.err)

		assert.Equal(t, c.wantStatus, rec.Code, c.err.Error())

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, c.wantCode, body["code"], c.err.Error())
		assert.NotEmpty(t, body["error"])
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body["error"], "connection refused")
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, isDomainError(service.ErrOverPick))
	assert.True(t, isDomainError(fmt.Errorf("wrap: %w", service.ErrOrderNotFound)))
	assert.False(t, isDomainError(errors.New("disk full")))
}
