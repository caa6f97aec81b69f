package respond

import (
	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details any) {
	write(c, status, ErrorBody{Code: code, Message: message, Details: details})
}

// RetryableError sends an error the client may retry unchanged.
func RetryableError(c *gin.Context, status int, code, message string) {
	write(c, status, ErrorBody{Code: code, Message: message, Retryable: true})
}

func write(c *gin.Context, status int, body ErrorBody) {
	fields := map[string]any{
		"status":     status,
		"code":       body.Code,
		"message":    body.Message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if clientID := c.GetString("clientId"); clientID != "" {
		fields["client_id"] = clientID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}
