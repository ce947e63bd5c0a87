package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/buildtrack/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// poolReporter is implemented by databases that expose connection pool statistics
type poolReporter interface {
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves GET /health
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a new HealthHandler; the ping is bounded by timeout
func NewHealthHandler(db Pinger, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{db: db, timeout: timeout, now: time.Now}
}

// Check reports database reachability, plus pool statistics when the ping
// succeeds. Anything but a successful ping is 503.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, database, code := "healthy", "ok", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
		database = "error"
		if errors.Is(err, persistence.ErrNotConfigured) {
			database = "not_configured"
		}
		requestLogger(c).Warn("Health check failed", zap.Error(err))
	}

	body := gin.H{
		"status":   status,
		"time":     h.now().UTC().Format(time.RFC3339),
		"database": database,
	}
	if pr, ok := h.db.(poolReporter); ok && code == http.StatusOK {
		if stats, err := pr.Stats(); err == nil {
			body["pool"] = stats
		}
	}
	c.JSON(code, body)
}
