package middleware

import (
	"net/http"

	"github.com/buildtrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit answers 413 when Content-Length is over maxBytes and wraps the
// body so undeclared lengths stop at the limit. maxBytes <= 0 disables it.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("Request body too large", nil))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
