package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:            "test",
		LocalStoreDir:  t.TempDir(),
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func TestBuildUsesMemoryReposWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database")
	}
	n, err := app.KnowledgeBase.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("expected seeded knowledge base of 3, got %d %v", n, err)
	}
	if app.AnalysisService.Suggestion == "" {
		t.Fatalf("expected canned suggestion from seed")
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildRejectsIncompleteObjectStore(t *testing.T) {
	for _, kind := range []string{"s3", "minio"} {
		cfg := testConfig(t)
		cfg.ObjectStoreType = kind
		if _, err := Build(context.Background(), cfg); err == nil {
			t.Fatalf("expected %s config error", kind)
		}
	}
}

func TestRouterServesTriageSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/triage/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view struct {
		SessionID string `json:"sessionId"`
		State     string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.SessionID == "" || view.State != "submission" {
		t.Fatalf("unexpected view: %+v", view)
	}

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/similar?q="+strings.Repeat("x", 3), nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Fatalf("unexpected similar response %d: %s", w.Code, w.Body.String())
	}
}
