package admin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/jobs"
	"triage-backend/internal/shared/server/middleware"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/shared/storage/object"
)

// Handler exposes admin endpoints.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches admin routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/admin")
	g.GET("/dashboard", h.dashboard)
	g.GET("/analytics", h.analytics)
	g.POST("/knowledge-base", h.uploadKnowledgeBase)
	g.POST("/training", h.startTraining)
	g.GET("/training", h.latestTraining)
	g.GET("/training/:id", h.getTraining)
	g.GET("/training/:id/events", h.trainingEvents)
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.Svc.Dashboard(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load dashboard", nil)
		return
	}
	respond.OK(c, d)
}

func (h *Handler) analytics(c *gin.Context) {
	a, err := h.Svc.Analytics(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load analytics", nil)
		return
	}
	respond.OK(c, a)
}

func (h *Handler) uploadKnowledgeBase(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid file", nil)
		return
	}
	defer f.Close()

	report, err := h.Svc.UploadKnowledgeBase(c.Request.Context(), middleware.ClientIDFromContext(c), fh.Filename, f)
	if err != nil {
		switch {
		case errors.Is(err, ErrUploadTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "file too large", gin.H{"maxBytes": MaxUploadBytes})
		case errors.Is(err, ErrInvalidDataset), errors.Is(err, object.ErrInvalidKey):
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to process upload", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, report)
}

func (h *Handler) startTraining(c *gin.Context) {
	job, err := h.Svc.StartTraining(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to start training", nil)
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	c.Set(middleware.StatusTransitionKey, string(jobs.StatusIdle)+"->"+string(job.Status))
	respond.Accepted(c, job)
}

func (h *Handler) latestTraining(c *gin.Context) {
	job, err := h.Svc.TrainingStatus("")
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load training status", nil)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) getTraining(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.JobIDKey, id)
	job, err := h.Svc.TrainingStatus(id)
	if err != nil {
		writeJobError(c, err)
		return
	}
	respond.OK(c, job)
}

// trainingEvents pushes job status changes until the job finishes.
func (h *Handler) trainingEvents(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.JobIDKey, id)
	updates, cancel, err := h.Svc.Jobs.Subscribe(id)
	if err != nil {
		writeJobError(c, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case job, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("status", job)
			return !job.Status.Terminal()
		}
	})
}

func writeJobError(c *gin.Context, err error) {
	if errors.Is(err, jobs.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "job not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load job", nil)
}
