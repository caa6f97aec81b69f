package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	clientIDKey      = "clientId"
	defaultClientID  = "anonymous"
	maxClientIDBytes = 128
)

// ClientID records the caller-supplied X-Client-Id, or "anonymous" when absent.
// It identifies callers for rate limiting and logs; it is not authentication.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		id := strings.TrimSpace(c.GetHeader("X-Client-Id"))
		if id == "" || len(id) > maxClientIDBytes {
			id = defaultClientID
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// ClientIDFromContext fetches the client ID set by ClientID.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
