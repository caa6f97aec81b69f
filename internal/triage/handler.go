package triage

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/server/middleware"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/shared/storage/object"
	"triage-backend/internal/tickets"
)

const (
	maxAttachmentBytes = 10 << 20
	heartbeatInterval  = 15 * time.Second
)

// Handler exposes triage sessions over HTTP.
type Handler struct {
	Sessions *Manager
	Store    object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(sessions *Manager, store object.ObjectStore) *Handler {
	return &Handler{Sessions: sessions, Store: store}
}

// RegisterRoutes attaches triage session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/triage/sessions")
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.close)
	g.PUT("/:id/attachment", h.putAttachment)
	g.DELETE("/:id/attachment", h.deleteAttachment)
	g.POST("/:id/analyze", h.analyze)
	g.POST("/:id/feedback", h.feedback)
	g.GET("/:id/events", h.events)
}

type updateRequest struct {
	Description *string `json:"description"`
	Module      *string `json:"module"`
	Priority    *string `json:"priority"`
}

type feedbackRequest struct {
	Resolved *bool `json:"resolved"`
}

func (h *Handler) create(c *gin.Context) {
	s := h.Sessions.Create()
	c.Set(middleware.SessionIDKey, s.ID())
	respond.JSON(c, http.StatusCreated, s.Snapshot())
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) update(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body updateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body", nil)
		return
	}

	var (
		module   tickets.Module
		priority tickets.Priority
		err      error
	)
	if body.Module != nil {
		if module, err = tickets.ParseModule(*body.Module); err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), []map[string]string{
				{"field": "module", "issue": "invalid"},
			})
			return
		}
	}
	if body.Priority != nil {
		if priority, err = tickets.ParsePriority(*body.Priority); err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), []map[string]string{
				{"field": "priority", "issue": "invalid"},
			})
			return
		}
	}

	if body.Module != nil {
		if err := s.SetModule(module); err != nil {
			writeSessionError(c, err)
			return
		}
	}
	if body.Priority != nil {
		if err := s.SetPriority(priority); err != nil {
			writeSessionError(c, err)
			return
		}
	}
	if body.Description != nil {
		if err := s.SetDescription(*body.Description); err != nil {
			writeSessionError(c, err)
			return
		}
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) putAttachment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if s.State() != StateSubmission {
		writeSessionError(c, ErrInvalidTransition)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", nil)
		return
	}
	if fh.Size > maxAttachmentBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "attachment too large", gin.H{"maxBytes": maxAttachmentBytes})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid file", nil)
		return
	}
	defer f.Close()

	key, size, mime, err := h.Store.Save(c.Request.Context(), middleware.ClientIDFromContext(c), fh.Filename, f)
	if err != nil {
		if errors.Is(err, object.ErrInvalidKey) {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid file name", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to store attachment", nil)
		return
	}

	att := tickets.Attachment{Key: key, FileName: fh.Filename, Size: size, ContentType: mime}
	if err := s.SetAttachment(att); err != nil {
		_ = h.Store.Delete(c.Request.Context(), key)
		writeSessionError(c, err)
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) deleteAttachment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ClearAttachment(); err != nil {
		writeSessionError(c, err)
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) analyze(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	from := s.State()
	if err := s.Analyze(); err != nil {
		writeSessionError(c, err)
		return
	}
	c.Set(middleware.StatusTransitionKey, transition(from, StateAnalyzing))
	respond.Accepted(c, s.Snapshot())
}

func (h *Handler) feedback(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var body feedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Resolved == nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "resolved is required", nil)
		return
	}
	ack, err := s.Feedback(c.Request.Context(), *body.Resolved)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.Set(middleware.StatusTransitionKey, transition(StateSolution, StateConfirmed))
	respond.OK(c, gin.H{
		"ack":     ack,
		"session": s.Snapshot(),
	})
}

// events pushes every view change as a server-sent event. Clients that cannot
// hold a stream poll GET /triage/sessions/:id instead.
func (h *Handler) events(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	views, cancel := s.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v, open := <-views:
			if !open {
				c.SSEvent("closed", gin.H{"sessionId": s.ID()})
				return false
			}
			c.SSEvent("view", v)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}

func (h *Handler) close(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	if err := h.Sessions.Close(id); err != nil {
		writeSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	s, err := h.Sessions.Get(id)
	if err != nil {
		writeSessionError(c, err)
		return nil, false
	}
	return s, true
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "session not found", nil)
	case errors.Is(err, ErrSessionClosed):
		respond.Error(c, http.StatusGone, ErrorCodeClosed, "session closed", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeValidation, ErrValidation.Error(), nil)
	case errors.Is(err, tickets.ErrInvalidLabel):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrAnalysisInFlight):
		respond.Error(c, http.StatusConflict, ErrorCodeAnalysisInFlight, err.Error(), nil)
	case errors.Is(err, ErrFeedbackInFlight):
		respond.Error(c, http.StatusConflict, ErrorCodeFeedbackInFlight, err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, ErrorCodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, ErrFeedbackFailed):
		respond.RetryableError(c, http.StatusBadGateway, ErrorCodeFeedbackFailed, ErrFeedbackFailed.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error", nil)
	}
}
