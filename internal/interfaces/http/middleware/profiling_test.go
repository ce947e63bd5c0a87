package middleware

import (
	"net/http"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func labelsSeen(t *testing.T, cfg ProfilingConfig, path string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seen := map[string]string{}
	record := func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(k, v string) bool {
			seen[k] = v
			return true
		})
		c.Status(http.StatusOK)
	}

	engine := gin.New()
	engine.Use(ProfilingWithConfig(cfg))
	engine.GET("/api/db/vendors", record)
	engine.GET("/health", record)

	assert.Equal(t, http.StatusOK, serve(engine, path).Code)
	return seen
}

func TestProfiling_LabelsResourceRoutes(t *testing.T) {
	seen := labelsSeen(t, DefaultProfilingConfig(), "/api/db/vendors")

	assert.Equal(t, "GET", seen["method"])
	assert.Equal(t, "/api/db/vendors", seen["route"])
	assert.Equal(t, "vendors", seen["resource"])
}

func TestProfiling_SkipsHealth(t *testing.T) {
	assert.Empty(t, labelsSeen(t, DefaultProfilingConfig(), "/health"))
}

func TestProfiling_Disabled(t *testing.T) {
	assert.Empty(t, labelsSeen(t, ProfilingConfig{}, "/api/db/vendors"))
}
