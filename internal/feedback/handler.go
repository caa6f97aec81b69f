package feedback

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/tickets"
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeFailed     = "FEEDBACK_FAILED"
)

// Handler exposes the feedback sink over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires feedback endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/feedback", h.submit)
}

type submitRequest struct {
	Resolved          *bool  `json:"resolved"`
	SessionID         string `json:"sessionId"`
	Description       string `json:"description"`
	PredictedModule   string `json:"predictedModule"`
	PredictedPriority string `json:"predictedPriority"`
}

func (h *Handler) submit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Resolved == nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "resolved is required", nil)
		return
	}
	module, err := tickets.ParseModule(body.PredictedModule)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		return
	}
	priority, err := tickets.ParsePriority(body.PredictedPriority)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		return
	}

	ack, err := h.svc.Submit(c.Request.Context(), Submission{
		SessionID:         body.SessionID,
		Resolved:          *body.Resolved,
		Description:       body.Description,
		PredictedModule:   module,
		PredictedPriority: priority,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respond.RetryableError(c, status, ErrorCodeFailed, "feedback could not be recorded")
		return
	}
	respond.OK(c, ack)
}
