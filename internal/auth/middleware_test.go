package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok")) //nolint:errcheck
})

func call(t *testing.T, h http.Handler, path, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	h := APIKey("none", "x-api-key", "secret", []string{"/api/contacts"})(okHandler)
	// No key on the request: should still pass because mode != "apikey".
	if rec := call(t, h, "/api/contacts", "", ""); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "", []string{"/api/contacts"})(okHandler)
	if rec := call(t, h, "/api/contacts", "", ""); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_CorrectKey_Passes(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret", []string{"/api/contacts"})(okHandler)
	rec := call(t, h, "/api/contacts", "x-api-key", "supersecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body: got %q, want ok", rec.Body.String())
	}
}

func TestAPIKey_WrongKey_Unauthorized(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret", []string{"/api/contacts"})(okHandler)
	rec := call(t, h, "/api/contacts", "x-api-key", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("body: got %v, want error field", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
}

func TestAPIKey_MissingHeader_Unauthorized(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret", []string{"/api/contacts"})(okHandler)
	if rec := call(t, h, "/api/contacts", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestAPIKey_CustomHeader(t *testing.T) {
	h := APIKey("apikey", "x-device-key", "supersecret", []string{"/api/contacts"})(okHandler)
	if rec := call(t, h, "/api/contacts", "x-api-key", "supersecret"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong header name: got %d, want 401", rec.Code)
	}
	if rec := call(t, h, "/api/contacts", "x-device-key", "supersecret"); rec.Code != http.StatusOK {
		t.Errorf("custom header: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_UnprotectedPaths(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret", []string{"/api/contacts"})(okHandler)
	for _, path := range []string{"/", "/api/history-data", "/api/current-data", "/api/contactsx"} {
		if rec := call(t, h, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", path, rec.Code)
		}
	}
	if rec := call(t, h, "/api/contacts/sub", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("sub-path: got %d, want 401", rec.Code)
	}
}
