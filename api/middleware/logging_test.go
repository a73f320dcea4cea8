package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

func TestLoggingPassesResponseThrough(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/ping", nil))

	if resp.Code != http.StatusTeapot {
		t.Fatalf("expected 418 got %d", resp.Code)
	}
	if resp.Body.String() != `{"status":"success"}` {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestStatusRecorderCapturesWrittenCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	rec.WriteHeader(http.StatusConflict)
	if rec.status != http.StatusConflict {
		t.Fatalf("expected recorded status 409 got %d", rec.status)
	}
}

func TestLoggingDefaultsImplicitStatusToOK(t *testing.T) {
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
