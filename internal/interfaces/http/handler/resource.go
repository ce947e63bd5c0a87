package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/buildtrack/backend/internal/application/resource"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResourceReader performs the read behind one /api/db route
type ResourceReader interface {
	Read(ctx context.Context, name string) (*resource.Result, error)
}

// ResourceHandler serves every /api/db resource from a single implementation
type ResourceHandler struct {
	BaseHandler
	reader ResourceReader
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(reader ResourceReader) *ResourceHandler {
	return &ResourceHandler{reader: reader}
}

// Serve returns the handler for the named resource. Any method other than GET gets 405.
func (h *ResourceHandler) Serve(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			h.MethodNotAllowed(c, http.MethodGet)
			return
		}

		res, err := h.reader.Read(c.Request.Context(), name)
		if err != nil {
			requestLogger(c).Error("Resource read failed",
				zap.String("resource", name),
				zap.Error(err),
			)
			h.InternalError(c, fmt.Sprintf("Failed to fetch %s", name), err)
			return
		}

		h.List(c, res.Data, res.Count, string(res.Source))
	}
}
