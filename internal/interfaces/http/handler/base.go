package handler

import (
	"net/http"
	"strings"

	"github.com/buildtrack/backend/internal/infrastructure/logger"
	"github.com/buildtrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// List sends a success envelope
func (h *BaseHandler) List(c *gin.Context, data any, count int, source string) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, count, source))
}

// InternalError sends a 500 failure envelope carrying err as details and records err on the context
func (h *BaseHandler) InternalError(c *gin.Context, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(message, err))
}

// MethodNotAllowed sends a 405 failure envelope with the Allow header
func (h *BaseHandler) MethodNotAllowed(c *gin.Context, allowed ...string) {
	c.Header("Allow", strings.Join(allowed, ", "))
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, dto.NewErrorResponse("Method not allowed", nil))
}

// NotFound sends a 404 failure envelope
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(message, nil))
}

// requestLogger returns the request-scoped logger set by logger.GinMiddleware
func requestLogger(c *gin.Context) *zap.Logger {
	return logger.GetGinLogger(c)
}
