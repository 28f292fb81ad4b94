package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRequestLoggerIncludesInstanceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/projects/{projectID}/preview/{instanceID}/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/projects/p1/preview/inst-42/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"instance_id":"inst-42"`) {
		t.Errorf("log line missing instance id: %s", out)
	}
	if !strings.Contains(out, `"status":200`) {
		t.Errorf("log line missing response status: %s", out)
	}
}

func TestRequestLoggerOmitsInstanceIDOffPreviewRoutes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if strings.Contains(buf.String(), "instance_id") {
		t.Errorf("health request logged with an instance id: %s", buf.String())
	}
}
