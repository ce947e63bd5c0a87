package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func(limit int64) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/echo", func(c *gin.Context) {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.String(http.StatusOK, string(body))
		})
		return router
	}

	t.Run("rejects declared oversize bodies", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(4).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("too long")))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Request body too large"}`, w.Body.String())
	})

	t.Run("passes small bodies", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(64).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ok")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("zero disables the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(0).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("anything")))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
