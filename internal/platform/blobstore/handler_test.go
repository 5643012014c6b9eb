package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

type failingStore struct {
	MemoryStore
}

func (*failingStore) Exists(context.Context, string, string) (bool, error) {
	return false, errors.New("connection reset")
}

func (*failingStore) URL(context.Context, string, string) (string, error) {
	return "", errors.New("connection reset")
}

func fileContext(e *echo.Echo, path, container, name string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("container", "name")
	c.SetParamValues(container, name)
	return c, rec
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.pdf":  "application/pdf",
		"a.DOC":  "application/msword",
		"a.docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"a.jpg":  "image/jpeg",
		"a.jpeg": "image/jpeg",
		"a.png":  "image/png",
		"a.gif":  "image/gif",
		"a.txt":  "text/plain",
		"a.zip":  "application/octet-stream",
		"noext":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestHandler_Download(t *testing.T) {
	store := NewMemoryStore()
	key, _ := store.Upload(context.Background(), "consultation-attachments", strings.NewReader("%PDF-1.4"), 8, "application/pdf", "consultations/1_scan.pdf")
	h := NewHandler(store)

	e := echo.New()
	c, rec := fileContext(e, "/api/files/download/consultation-attachments/"+key, "consultation-attachments", key)
	if err := h.Download(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "%PDF-1.4" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHandler_Download_NotFound(t *testing.T) {
	h := NewHandler(NewMemoryStore())
	e := echo.New()
	c, _ := fileContext(e, "/api/files/download/c/missing.pdf", "c", "missing.pdf")

	err := h.Download(c)
	if apperr.StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Download_StoreError(t *testing.T) {
	h := NewHandler(&failingStore{})
	e := echo.New()
	c, _ := fileContext(e, "/api/files/download/c/a.pdf", "c", "a.pdf")

	err := h.Download(c)
	if !errors.Is(err, apperr.ErrStorageIO) {
		t.Errorf("expected ErrStorageIO, got %v", err)
	}
	if apperr.StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apperr.StatusCode(err))
	}
}

func TestHandler_URL(t *testing.T) {
	h := NewHandler(NewMemoryStore())
	e := echo.New()
	c, rec := fileContext(e, "/api/files/url/c/a.pdf", "c", "a.pdf")

	if err := h.URL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["url"] != "memory://c/a.pdf" {
		t.Errorf("unexpected url %q", body["url"])
	}
}

func TestHandler_URL_StoreError(t *testing.T) {
	h := NewHandler(&failingStore{})
	e := echo.New()
	c, _ := fileContext(e, "/api/files/url/c/a.pdf", "c", "a.pdf")

	if err := h.URL(c); !errors.Is(err, apperr.ErrStorageIO) {
		t.Errorf("expected ErrStorageIO, got %v", err)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	NewHandler(NewMemoryStore()).RegisterRoutes(e.Group("/api"))

	want := map[string]bool{
		"GET /api/files/download/:container/:name": false,
		"GET /api/files/url/:container/:name":      false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestContentDisposition_RoundTrips(t *testing.T) {
	for _, name := range []string{`scan "final".pdf`, "plain.pdf", "résumé.docx", `a\b;c.txt`} {
		disposition, params, err := mime.ParseMediaType(contentDisposition(name))
		if err != nil {
			t.Errorf("%q: unparseable header %q: %v", name, contentDisposition(name), err)
			continue
		}
		if disposition != "attachment" || params["filename"] != name {
			t.Errorf("%q: got %s %v", name, disposition, params)
		}
	}
}
