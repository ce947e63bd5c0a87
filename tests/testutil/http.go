package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the decoded form of every /api/db response
type Envelope struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
	Count   int               `json:"count"`
	Source  string            `json:"source"`
	Error   string            `json:"error"`
	Details string            `json:"details"`
}

// PerformRequest serves a request without a body against engine
func PerformRequest(engine http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// NewTestContext creates a gin test context for a request without a body
func NewTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

// DecodeEnvelope parses the response body as an envelope
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// AssertListEnvelope asserts a 200 success envelope whose count matches its data
func AssertListEnvelope(t *testing.T, w *httptest.ResponseRecorder, wantCount int) Envelope {
	t.Helper()

	assert.Equal(t, http.StatusOK, w.Code)
	env := DecodeEnvelope(t, w)
	assert.True(t, env.Success, "Expected success to be true")
	assert.Equal(t, wantCount, env.Count)
	assert.Len(t, env.Data, env.Count)
	return env
}

// AssertErrorEnvelope asserts a failure envelope with the given status
func AssertErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, wantStatus int) Envelope {
	t.Helper()

	assert.Equal(t, wantStatus, w.Code)
	env := DecodeEnvelope(t, w)
	assert.False(t, env.Success, "Expected success to be false")
	assert.NotEmpty(t, env.Error)
	return env
}
