package analysis

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"triage-backend/internal/shared/server/middleware"
	localstore "triage-backend/internal/shared/storage/object/local"
	"triage-backend/internal/tickets"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWithStore(t, t.TempDir())
}

func newTestRouterWithStore(t *testing.T, dir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(newSeededService(t), localstore.New(dir))
	r := gin.New()
	r.Use(middleware.ClientID())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestSimilarEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/similar?q=vpn+is+broken+again", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []tickets.SolvedTicket `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
}

func TestAnalyzeEndpointJSON(t *testing.T) {
	r := newTestRouter(t)

	body := []byte(`{"description":"VPN will not connect from home","priority":"High"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got tickets.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PredictedModule != tickets.ModuleVPN || got.PredictedPriority != tickets.PriorityHigh {
		t.Fatalf("unexpected prediction: %+v", got)
	}
}

func TestAnalyzeEndpointRejectsEmptySubmission(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("provide a description or an attachment")) {
		t.Fatalf("missing validation message: %s", w.Body.String())
	}
}

func TestAnalyzeEndpointRejectsUnknownModule(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{"description":"x","module":"Plumbing"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAnalyzeEndpointMultipartAttachmentOnly(t *testing.T) {
	r := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("attachment", "screenshot.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.WriteField("module", "Hardware Issues")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got tickets.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PredictedModule != tickets.ModuleHardware {
		t.Fatalf("expected Hardware Issues, got %s", got.PredictedModule)
	}
}

func multipartAnalyzeRequest(t *testing.T, module string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("attachment", "screenshot.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	_ = mw.WriteField("description", "screen flickers after docking")
	_ = mw.WriteField("module", module)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk store: %v", err)
	}
	return files
}

func TestAnalyzeEndpointUnknownModuleStoresNothing(t *testing.T) {
	dir := t.TempDir()
	r := newTestRouterWithStore(t, dir)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartAnalyzeRequest(t, "Plumbing"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("expected no stored attachments after rejected labels, got %v", files)
	}
}

func TestAnalyzeEndpointDiscardsAttachmentAfterAnalysis(t *testing.T) {
	dir := t.TempDir()
	r := newTestRouterWithStore(t, dir)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartAnalyzeRequest(t, "Hardware Issues"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Fatalf("expected attachment to be removed after analysis, got %v", files)
	}
}
