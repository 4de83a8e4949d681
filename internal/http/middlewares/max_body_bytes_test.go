package middlewares_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/bookstore/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/echo", middlewares.MaxBodyBytes(16), func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)

		if err != nil {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}

		c.String(http.StatusOK, "%d", len(b))
	})

	t.Run("oversized declared length rejected early", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", w.Code)
		}

		if !strings.Contains(w.Body.String(), `"fail"`) {
			t.Fatalf("413 should use the fail envelope: %s", w.Body.String())
		}
	})

	t.Run("small body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("hello"))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "5" {
			t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
		}
	})
}
