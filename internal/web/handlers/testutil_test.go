package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// withRouteParams attaches chi URL parameters such as {id} or {label}.
func withRouteParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decoding %s: %v\nBody: %s", rec.Header().Get("Content-Type"), err, rec.Body.String())
	}
}

// expectStatus also checks the JSON content type every handler response
// carries, images aside.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status = %d, want %d\nBody: %s", rec.Code, want, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" && ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}

// expectError checks the {"error": ...} body written by respondError.
func expectError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, message string) {
	t.Helper()
	expectStatus(t, rec, wantStatus)
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] != message {
		t.Errorf("error = %q, want %q", body["error"], message)
	}
}
