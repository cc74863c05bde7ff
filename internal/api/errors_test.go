package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
)

func TestWriteError_MapsKindToStatus(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{apperr.New(apperr.BadRequest, "bad"), 400},
		{apperr.New(apperr.Unauthorized, "nope"), 401},
		{apperr.New(apperr.Forbidden, "no"), 403},
		{apperr.New(apperr.NotFound, "missing"), 404},
		{apperr.New(apperr.Conflict, "exists"), 409},
		{apperr.New(apperr.TooManyRequests, "slow down"), 429},
		{apperr.InternalErr(errors.New("boom")), 500},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, c.err)
		assert.Equal(t, c.wantStatus, rec.Code)
	}
}

func TestWriteError_RetryAfterHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperr.WithRetryAfter(apperr.TooManyRequests, "slow down", 42))

	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}

func TestWriteError_ValidationErrorIncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperr.ValidationErr(map[string]string{"email": "invalid"}))

	assert.Equal(t, 400, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "fields")
}

func TestWriteError_NonAppErrorTreatedAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("unexpected"))

	assert.Equal(t, 500, rec.Code)
}
