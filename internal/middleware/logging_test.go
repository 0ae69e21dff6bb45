package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingCapturesStatusAndCallsNext(t *testing.T) {
	called := false
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected wrapped handler to be called")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Code = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestStatusRecorderDefaultsToOKWhenWriteHeaderNeverCalled(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	_, _ = sr.Write([]byte("ok"))

	if sr.status != http.StatusOK {
		t.Errorf("status = %d, want %d", sr.status, http.StatusOK)
	}
}
