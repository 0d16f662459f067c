package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srishtiii28/alphascan/internal/api/response"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestOK_WrapsDataInSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.OK(rec, map[string]string{"status": "healthy"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]any{"status": "healthy"}, env.Data)
}

func TestError_SetsFailureEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NotFound(rec, "group not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Equal(t, "group not found", env.Error)
}

func TestNoContent_HasEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
