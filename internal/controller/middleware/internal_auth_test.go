package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireInternalAuth_ValidSecretAndPrincipal(t *testing.T) {
	var gotAdmin string
	handler := RequireInternalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin, _ = AdminFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/admin/groups/x/approve", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Admin-User", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if gotAdmin != "alice" {
		t.Errorf("got admin %q, want alice", gotAdmin)
	}
}

func TestRequireInternalAuth_MissingPrincipal(t *testing.T) {
	handler := RequireInternalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("POST", "/admin/groups/x/approve", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}

func TestRequireInternalAuth_WrongSecret(t *testing.T) {
	handler := RequireInternalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("POST", "/admin/groups/x/approve", nil)
	req.Header.Set("Authorization", "Bearer nope")
	req.Header.Set("X-Admin-User", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}

func TestRequireInternalAuth_MissingHeader(t *testing.T) {
	handler := RequireInternalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	req := httptest.NewRequest("POST", "/admin/groups/x/approve", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}
