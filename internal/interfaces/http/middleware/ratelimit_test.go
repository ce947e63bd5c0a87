package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(t *testing.T, perSecond float64, burst int) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perSecond, burst)
	rl.now = clock.now
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestRateLimiter_Reserve(t *testing.T) {
	t.Run("allows the burst then asks to wait", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1, 3)

		for i := 0; i < 3; i++ {
			assert.Zero(t, rl.Reserve("10.0.0.1"), "request %d", i+1)
		}
		wait := rl.Reserve("10.0.0.1")
		assert.Greater(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, time.Second)
	})

	t.Run("refills over time", func(t *testing.T) {
		rl, clock := newTestLimiter(t, 2, 1)

		assert.Zero(t, rl.Reserve("a"))
		assert.NotZero(t, rl.Reserve("a"))

		clock.advance(500 * time.Millisecond)
		assert.Zero(t, rl.Reserve("a"))
	})

	t.Run("denied requests do not consume tokens", func(t *testing.T) {
		rl, clock := newTestLimiter(t, 1, 1)

		assert.Zero(t, rl.Reserve("a"))
		for i := 0; i < 5; i++ {
			assert.NotZero(t, rl.Reserve("a"))
		}
		clock.advance(time.Second)
		assert.Zero(t, rl.Reserve("a"))
	})

	t.Run("clients are independent", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1, 1)

		assert.Zero(t, rl.Reserve("a"))
		assert.NotZero(t, rl.Reserve("a"))
		assert.Zero(t, rl.Reserve("b"))
	})

	t.Run("burst below one is raised to one", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 5, 0)
		assert.Zero(t, rl.Reserve("a"))
	})
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl, clock := newTestLimiter(t, 1, 1)

	rl.Reserve("old")
	clock.advance(2 * time.Minute)
	rl.Reserve("recent")
	clock.advance(2 * time.Minute)

	assert.Equal(t, 1, rl.evictIdle())
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, _ := newTestLimiter(t, 1, 2)
	core, logs := observer.New(zapcore.WarnLevel)

	engine := gin.New()
	engine.Use(RequestID(), RateLimit(rl, zap.New(core)))
	engine.GET("/api/db/vendors", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/db/vendors", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, request("192.0.2.1").Code)
	assert.Equal(t, http.StatusOK, request("192.0.2.1").Code)

	w := request("192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many requests", body["error"])

	assert.Equal(t, http.StatusOK, request("192.0.2.2").Code)

	entries := logs.FilterMessage("Rate limit exceeded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "192.0.2.1", entries[0].ContextMap()["client_ip"])
}
