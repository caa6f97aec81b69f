package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/admin"
	"triage-backend/internal/analysis"
	"triage-backend/internal/feedback"
	"triage-backend/internal/jobs"
	"triage-backend/internal/shared/config"
	"triage-backend/internal/shared/server"
	"triage-backend/internal/shared/storage/db"
	"triage-backend/internal/shared/storage/object"
	localstore "triage-backend/internal/shared/storage/object/local"
	miniostore "triage-backend/internal/shared/storage/object/minio"
	s3store "triage-backend/internal/shared/storage/object/s3"
	"triage-backend/internal/shared/telemetry"
	"triage-backend/internal/tickets"
	"triage-backend/internal/triage"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	KnowledgeBase   tickets.Repo
	FeedbackRepo    feedback.Repo
	AnalysisService *analysis.Service
	FeedbackService *feedback.Service
	Sessions        *triage.Manager
	Jobs            *jobs.Store
	AdminService    *admin.Service

	TriageHandler   *triage.Handler
	AnalysisHandler *analysis.Handler
	FeedbackHandler *feedback.Handler
	AdminHandler    *admin.Handler
}

// Build connects storage, seeds the knowledge base and wires services and routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(ctx, app); err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		TriageHandler:   app.TriageHandler,
		AnalysisHandler: app.AnalysisHandler,
		FeedbackHandler: app.FeedbackHandler,
		AdminHandler:    app.AdminHandler,
	})

	return app, nil
}

// Close ends every live session, fails pending training jobs and closes the database.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.CloseAll()
	}
	if a.AdminService != nil {
		a.AdminService.Close()
	}
	closeDB(a.DB)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.Options{MaxOpenConns: cfg.DBMaxOpenConns, PingTimeout: cfg.DBPingTimeout}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		if strings.TrimSpace(cfg.MinioEndpoint) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=minio requires MINIO_ENDPOINT")
		}
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.KnowledgeBase = &tickets.PGRepo{DB: app.DB}
		app.FeedbackRepo = &feedback.PGRepo{DB: app.DB}
	} else {
		app.KnowledgeBase = tickets.NewMemoryRepo()
		app.FeedbackRepo = feedback.NewMemoryRepo()
	}

	seed, err := tickets.LoadSeed(cfg.KBSeedFile)
	if err != nil {
		return fmt.Errorf("load knowledge base seed: %w", err)
	}
	if err := seed.Apply(ctx, app.KnowledgeBase); err != nil {
		return fmt.Errorf("apply knowledge base seed: %w", err)
	}

	app.AnalysisService = &analysis.Service{
		KB:             app.KnowledgeBase,
		Suggestion:     seed.Suggestion,
		AnalyzeLatency: cfg.AnalyzeLatency,
		LookupLatency:  cfg.LookupLatency,
	}
	app.FeedbackService = feedback.NewService(app.FeedbackRepo, cfg.FeedbackLatency)

	store := app.Store
	app.Sessions = triage.NewManager(triage.Config{
		Analyzer:       app.AnalysisService,
		Lookup:         app.AnalysisService,
		Feedback:       app.FeedbackService,
		Debounce:       cfg.SimilarityDebounce,
		ResetDelay:     cfg.ResetDelay,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		OnDiscard: func(att tickets.Attachment) {
			if err := store.Delete(context.Background(), att.Key); err != nil {
				telemetry.Warn("triage.attachment_delete_failed", map[string]any{"key": att.Key, "error": err})
			}
		},
	}, cfg.SessionIdleTTL)

	app.Jobs = jobs.NewStore()
	adminSvc, err := admin.NewService(app.KnowledgeBase, app.FeedbackService, app.Jobs, app.Store, cfg.TrainingDuration)
	if err != nil {
		return err
	}
	app.AdminService = adminSvc

	app.TriageHandler = triage.NewHandler(app.Sessions, app.Store)
	app.AnalysisHandler = analysis.NewHandler(app.AnalysisService, app.Store)
	app.FeedbackHandler = feedback.NewHandler(app.FeedbackService)
	app.AdminHandler = admin.NewHandler(app.AdminService)

	if app.TriageHandler == nil || app.AnalysisHandler == nil || app.FeedbackHandler == nil || app.AdminHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("bootstrap: close database: %v", err)
	}
}
