package admin

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/jobs"
	"triage-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	r := gin.New()
	r.Use(middleware.ClientID())
	NewHandler(env.svc).RegisterRoutes(r.Group("/api/v1"))
	return r, env
}

func TestDashboardEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var d Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Heatmap) == 0 {
		t.Fatalf("expected heatmap in response")
	}
}

func TestAnalyticsEndpointInsufficientData(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"insufficient_data"`)) {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestUploadEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "kb.csv")
	_, _ = fw.Write([]byte(sampleCSV))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/knowledge-base", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var report EdaReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.RowCount != 3 || report.Imported != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestUploadEndpointRequiresFile(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/knowledge-base", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTrainingEndpoints(t *testing.T) {
	r, env := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/training", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var job jobs.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}

	env.timers[0].f()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/training/"+job.ID, nil))
	var got jobs.Job
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if w.Code != http.StatusOK || got.Status != jobs.StatusComplete {
		t.Fatalf("expected complete job, got %d %+v", w.Code, got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/training/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTrainingEventsStreamEndsOnCompletion(t *testing.T) {
	r, env := newTestRouter(t)
	job, _ := env.svc.StartTraining(t.Context())
	env.timers[0].f()

	srv := httptest.NewServer(r)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/v1/admin/training/" + job.ID + "/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	if !bytes.Contains(body.Bytes(), []byte(`"status":"complete"`)) {
		t.Fatalf("expected completion event, got %q", body.String())
	}
}
