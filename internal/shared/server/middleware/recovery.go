package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope. Once a response
// has started, such as an event stream, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			metrics.IncPanics()
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"client_id":  ClientIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if id := c.GetString(SessionIDKey); id != "" {
				fields["session_id"] = id
			}
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
