package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/server/middleware"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/shared/storage/object"
	"triage-backend/internal/shared/telemetry"
	"triage-backend/internal/tickets"
)

const maxAttachmentBytes = 10 << 20

// Handler exposes the analysis and similarity operations over HTTP.
type Handler struct {
	svc   *Service
	store object.ObjectStore
}

func NewHandler(svc *Service, store object.ObjectStore) *Handler {
	return &Handler{svc: svc, store: store}
}

// RegisterRoutes wires analysis endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/similar", h.similar)
	rg.POST("/analyze", h.analyze)
}

type analyzeRequest struct {
	Description string `json:"description"`
	Module      string `json:"module"`
	Priority    string `json:"priority"`
}

func (h *Handler) similar(c *gin.Context) {
	found, err := h.svc.LookupSimilar(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": found})
}

func (h *Handler) analyze(c *gin.Context) {
	var body analyzeRequest
	multipartForm := strings.HasPrefix(c.ContentType(), "multipart/")

	if multipartForm {
		body.Description = c.PostForm("description")
		body.Module = c.PostForm("module")
		body.Priority = c.PostForm("priority")
	} else if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body", nil)
		return
	}

	// Labels are checked before anything is written to the store.
	req, err := BuildRequest(body.Description, body.Module, body.Priority, nil)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		return
	}

	if multipartForm {
		att, ok := h.saveAttachment(c)
		if !ok {
			return
		}
		if att != nil {
			// Stateless analysis keeps no reference to the upload.
			defer h.discardAttachment(c.Request.Context(), att.Key)
		}
		req.Attachment = att
	}

	result, err := h.svc.Analyze(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) discardAttachment(ctx context.Context, key string) {
	if err := h.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Warn("analysis.attachment_delete_failed", map[string]any{"key": key, "error": err})
	}
}

// saveAttachment stores the optional "attachment" form file.
func (h *Handler) saveAttachment(c *gin.Context) (*tickets.Attachment, bool) {
	fh, err := c.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid attachment", nil)
		return nil, false
	}
	if fh.Size > maxAttachmentBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "attachment too large", gin.H{"maxBytes": maxAttachmentBytes})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid attachment", nil)
		return nil, false
	}
	defer f.Close()

	owner := middleware.ClientIDFromContext(c)
	key, size, mime, err := h.store.Save(c.Request.Context(), owner, fh.Filename, f)
	if err != nil {
		if errors.Is(err, object.ErrInvalidKey) {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid attachment name", nil)
			return nil, false
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to store attachment", nil)
		return nil, false
	}
	return &tickets.Attachment{Key: key, FileName: fh.Filename, Size: size, ContentType: mime}, true
}

// BuildRequest validates raw labels and assembles an AnalysisRequest.
func BuildRequest(description, module, priority string, attachment *tickets.Attachment) (tickets.AnalysisRequest, error) {
	m, err := tickets.ParseModule(module)
	if err != nil {
		return tickets.AnalysisRequest{}, err
	}
	p, err := tickets.ParsePriority(priority)
	if err != nil {
		return tickets.AnalysisRequest{}, err
	}
	return tickets.AnalysisRequest{
		Description: description,
		Attachment:  attachment,
		Module:      m,
		Priority:    p,
	}, nil
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respond.RetryableError(c, http.StatusGatewayTimeout, ErrorCodeTimeout, "analysis did not complete in time")
	default:
		respond.RetryableError(c, http.StatusInternalServerError, ErrorCodeInternal, "analysis failed")
	}
}
