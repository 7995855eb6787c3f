package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"dreamlab/internal/domain"
	"dreamlab/internal/middleware"
	"dreamlab/internal/providers/analysis"
	"dreamlab/internal/storage"
)

type fakeGenerator struct {
	generated  int
	dispatched int
	res        domain.GenerationResult
	err        error
	statusID   string
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	f.generated++
	return f.res, f.err
}

func (f *fakeGenerator) Dispatch(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	f.dispatched++
	return f.res, f.err
}

func (f *fakeGenerator) GetStatus(_ context.Context, id string) (domain.GenerationResult, error) {
	f.statusID = id
	return f.res, f.err
}

type fakeAnalyzer struct {
	in  analysis.Input
	res *domain.Analysis
	err error
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(_ context.Context, in analysis.Input) (*domain.Analysis, error) {
	f.in = in
	return f.res, f.err
}

type memoryGallery struct {
	posts []domain.GalleryPost
	page  int
	size  int
}

func (m *memoryGallery) Create(_ context.Context, post *domain.GalleryPost) (*domain.GalleryPost, error) {
	saved := *post
	saved.ID = "0b9c7c1e-4a43-4f8e-9d1b-2f0e6c8a7d11"
	saved.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.posts = append(m.posts, saved)
	return &saved, nil
}

func (m *memoryGallery) List(_ context.Context, page, pageSize int) (*domain.GalleryPage, error) {
	m.page, m.size = page, pageSize
	page, pageSize = domain.ClampPage(page, pageSize)
	return &domain.GalleryPage{Items: m.posts, Page: page, PageSize: pageSize, Total: int64(len(m.posts))}, nil
}

func (m *memoryGallery) Delete(_ context.Context, id, userID string) (string, error) {
	for i, p := range m.posts {
		if p.ID == id && p.UserID == userID {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return p.StorageKey, nil
		}
	}
	return "", domain.ErrNotFound
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func postJSON(target string, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateGenerationBlocksByDefault(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{ID: "luma-1", State: domain.StateCompleted, URL: "https://cdn/x.png"}}
	app := NewApp(Options{Generator: gen})

	rec := httptest.NewRecorder()
	app.CreateGeneration(rec, postJSON("/v1/generations", `{"prompt":"fox","model":"photon-1"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if gen.generated != 1 || gen.dispatched != 0 {
		t.Fatalf("expected blocking Generate, got generated=%d dispatched=%d", gen.generated, gen.dispatched)
	}
	var res domain.GenerationResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.URL != "https://cdn/x.png" {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestCreateGenerationAsyncModeDispatches(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{ID: "luma-1", State: domain.StateDreaming}}
	app := NewApp(Options{Generator: gen})

	rec := httptest.NewRecorder()
	app.CreateGeneration(rec, postJSON("/v1/generations?mode=async", `{"prompt":"fox","model":"photon-1"}`))

	if rec.Code != http.StatusAccepted || gen.dispatched != 1 || gen.generated != 0 {
		t.Fatalf("status=%d dispatched=%d generated=%d", rec.Code, gen.dispatched, gen.generated)
	}

	gen.res = domain.GenerationResult{ID: "openai-1", State: domain.StateCompleted}
	rec = httptest.NewRecorder()
	app.CreateGeneration(rec, postJSON("/v1/generations?mode=async", `{"prompt":"fox","model":"dall-e-3"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("terminal dispatch should answer 200, got %d", rec.Code)
	}
}

func TestCreateGenerationRejectsBadJSON(t *testing.T) {
	app := NewApp(Options{Generator: &fakeGenerator{}})
	rec := httptest.NewRecorder()
	app.CreateGeneration(rec, postJSON("/v1/generations", `{"prompt":`))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "bad_request" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerationErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		kind   string
	}{
		{"configuration", domain.NewConfigurationError(domain.ProviderLuma, "luma: api key is not configured"), http.StatusServiceUnavailable, "configuration", "configuration"},
		{"provider request", &domain.GenerationError{Kind: domain.KindProviderRequest, Message: "luma: bad"}, http.StatusBadGateway, "provider_request", "provider_request"},
		{"provider poll", &domain.GenerationError{Kind: domain.KindProviderPoll, Message: "luma: 500"}, http.StatusBadGateway, "provider_poll", "provider_poll"},
		{"failed", &domain.GenerationError{Kind: domain.KindGenerationFailed, Message: "nsfw content"}, http.StatusUnprocessableEntity, "generation_failed", "generation_failed"},
		{"timeout", &domain.GenerationError{Kind: domain.KindTimeout, Message: "timed out after 5 minutes"}, http.StatusGatewayTimeout, "timeout", "timeout"},
		{"validation", errors.Join(domain.ErrInvalidRequest, errors.New("prompt is required")), http.StatusBadRequest, "bad_request", ""},
		{"synchronous id", domain.ErrSynchronousID, http.StatusBadRequest, "synchronous_id", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := NewApp(Options{Generator: &fakeGenerator{err: tc.err}})
			rec := httptest.NewRecorder()
			app.CreateGeneration(rec, postJSON("/v1/generations", `{"prompt":"fox","model":"photon-1"}`))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			got := decodeError(t, rec)
			if got.Code != tc.code || got.Kind != tc.kind {
				t.Fatalf("error = %+v, want code %q kind %q", got, tc.code, tc.kind)
			}
		})
	}
}

func TestGenerationFailureReasonIsVerbatim(t *testing.T) {
	app := NewApp(Options{Generator: &fakeGenerator{err: &domain.GenerationError{Kind: domain.KindGenerationFailed, Message: "nsfw content"}}})
	rec := httptest.NewRecorder()
	app.CreateGeneration(rec, postJSON("/v1/generations", `{"prompt":"fox","model":"photon-1"}`))
	if msg := decodeError(t, rec).Message; msg != "nsfw content" {
		t.Fatalf("message = %q", msg)
	}
}

func TestGenerationStatusUsesPathID(t *testing.T) {
	gen := &fakeGenerator{res: domain.GenerationResult{ID: "abc", State: domain.StateDreaming}}
	app := NewApp(Options{Generator: gen})
	r := chi.NewRouter()
	r.Get("/v1/generations/{id}", app.GenerationStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/generations/abc", nil))
	if rec.Code != http.StatusOK || gen.statusID != "abc" {
		t.Fatalf("status=%d id=%q", rec.Code, gen.statusID)
	}
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateAnalysisPassesMediaAndHints(t *testing.T) {
	an := &fakeAnalyzer{res: &domain.Analysis{Title: "Harbor", Provider: "gemini", MediaType: domain.MediaImage}}
	app := NewApp(Options{Analyzer: an})

	rec := httptest.NewRecorder()
	app.CreateAnalysis(rec, multipartUpload(t, "harbor.png", "image/png", []byte("\x89PNG\r\n\x1a\n"), map[string]string{"notes": " calm ", "style": "noir"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if an.in.MediaType != domain.MediaImage || an.in.Notes != "calm" || an.in.Style != "noir" || an.in.Filename != "harbor.png" {
		t.Fatalf("unexpected input %#v", an.in)
	}
}

func TestCreateAnalysisSniffsGenericContentType(t *testing.T) {
	an := &fakeAnalyzer{res: &domain.Analysis{Title: "x", Provider: "gemini"}}
	app := NewApp(Options{Analyzer: an})
	rec := httptest.NewRecorder()
	app.CreateAnalysis(rec, multipartUpload(t, "blob", "application/octet-stream", []byte("\x89PNG\r\n\x1a\n0000"), nil))
	if rec.Code != http.StatusOK || an.in.MIMEType != "image/png" {
		t.Fatalf("status=%d mime=%q", rec.Code, an.in.MIMEType)
	}
}

func TestCreateAnalysisRejectsUnsupportedMedia(t *testing.T) {
	app := NewApp(Options{Analyzer: &fakeAnalyzer{}})
	rec := httptest.NewRecorder()
	app.CreateAnalysis(rec, multipartUpload(t, "notes.txt", "text/plain", []byte("hello"), nil))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateAnalysisSurfacesConfigurationError(t *testing.T) {
	app := NewApp(Options{Analyzer: &fakeAnalyzer{err: domain.NewConfigurationError("gemini", "gemini: api key is not configured")}})
	rec := httptest.NewRecorder()
	app.CreateAnalysis(rec, multipartUpload(t, "a.mp3", "audio/mpeg", []byte("ID3"), nil))
	if rec.Code != http.StatusServiceUnavailable || decodeError(t, rec).Kind != "configuration" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateAnalysisRequiresFile(t *testing.T) {
	app := NewApp(Options{Analyzer: &fakeAnalyzer{}})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("notes", "x")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	app.CreateAnalysis(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func TestGalleryLifecycleStoresInlineMedia(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gallery := &memoryGallery{}
	app := NewApp(Options{Gallery: gallery, Store: store})

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))
	body := `{"title":"Fox","media_type":"image","media_url":"` + dataURL + `","prompt":"a fox","analysis":{"title":"Fox"}}`
	rec := httptest.NewRecorder()
	app.CreateGalleryPost(rec, withUser(postJSON("/v1/gallery", body), "owner"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var saved domain.GalleryPost
	_ = json.Unmarshal(rec.Body.Bytes(), &saved)
	if !strings.HasPrefix(saved.MediaURL, "http://localhost:8080/static/gallery/") || saved.StorageKey == "" {
		t.Fatalf("inline media not stored: %#v", saved)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(saved.StorageKey))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	rec = httptest.NewRecorder()
	app.ListGallery(rec, httptest.NewRequest(http.MethodGet, "/v1/gallery?page=1&page_size=500", nil))
	var page domain.GalleryPage
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if rec.Code != http.StatusOK || page.Total != 1 || page.PageSize != domain.MaxGalleryPageSize {
		t.Fatalf("list status=%d page=%+v", rec.Code, page)
	}

	r := chi.NewRouter()
	r.Delete("/v1/gallery/{id}", app.DeleteGalleryPost)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/v1/gallery/"+saved.ID, nil), "intruder"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/v1/gallery/"+saved.ID, nil), "owner"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(saved.StorageKey))); !os.IsNotExist(err) {
		t.Fatalf("stored file should be removed, stat err = %v", err)
	}
}

func TestGalleryCreateValidation(t *testing.T) {
	app := NewApp(Options{Gallery: &memoryGallery{}})
	tests := []string{
		`{"media_type":"image","media_url":"https://x/y.png"}`,
		`{"title":"t","media_type":"pdf","media_url":"https://x/y.png"}`,
		`{"title":"t","media_type":"image","media_url":"ftp://x/y.png"}`,
	}
	for _, body := range tests {
		rec := httptest.NewRecorder()
		app.CreateGalleryPost(rec, withUser(postJSON("/v1/gallery", body), "owner"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	app.CreateGalleryPost(rec, postJSON("/v1/gallery", `{"title":"t","media_type":"image","media_url":"https://x/y.png"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d", rec.Code)
	}
}

func TestGalleryUnavailableWithoutDatabase(t *testing.T) {
	app := NewApp(Options{})
	rec := httptest.NewRecorder()
	app.ListGallery(rec, httptest.NewRequest(http.MethodGet, "/v1/gallery", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
