package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClientIDDefaultsToAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ClientID())
	router.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, ClientIDFromContext(c))
	})

	cases := map[string]string{
		"":                       "anonymous",
		"kiosk-7":                "kiosk-7",
		strings.Repeat("x", 200): "anonymous",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if header != "" {
			req.Header.Set("X-Client-Id", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if got := resp.Body.String(); got != want {
			t.Fatalf("header %q: expected %q, got %q", header, want, got)
		}
	}
}
