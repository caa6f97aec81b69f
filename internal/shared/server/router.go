package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/admin"
	"triage-backend/internal/analysis"
	"triage-backend/internal/feedback"
	"triage-backend/internal/shared/config"
	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/server/middleware"
	"triage-backend/internal/shared/server/respond"
	"triage-backend/internal/triage"
)

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	TriageHandler   *triage.Handler
	AnalysisHandler *analysis.Handler
	FeedbackHandler *feedback.Handler
	AdminHandler    *admin.Handler
}

// pollingRoutes are hit repeatedly by clients that cannot hold an event stream open.
var pollingRoutes = map[string]bool{
	"/api/v1/triage/sessions/:id":        true,
	"/api/v1/triage/sessions/:id/events": true,
	"/api/v1/admin/training":             true,
	"/api/v1/admin/training/:id":         true,
	"/api/v1/admin/training/:id/events":  true,
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.ClientID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.TriageHandler != nil {
		deps.TriageHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.RegisterRoutes(api)
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			middleware.DefaultRateLimitGroup: {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			middleware.PollingRateLimitGroup: {Rate: cfg.RateLimitRPS * 4, Burst: cfg.RateLimitBurst * 4},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet && pollingRoutes[c.FullPath()] {
				return middleware.PollingRateLimitGroup
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
