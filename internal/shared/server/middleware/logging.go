package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	SessionIDKey        = "sessionId"
	JobIDKey            = "jobId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"client_id":         ClientIDFromContext(c),
			"client_ip":         c.ClientIP(),
		}
		if id := c.GetString(SessionIDKey); id != "" {
			fields["session_id"] = id
		}
		if id := c.GetString(JobIDKey); id != "" {
			fields["job_id"] = id
		}
		telemetry.Info("request.complete", fields)
	}
}
