package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/tillpoint/tillpoint-backend/pkg/auth"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/types"
)

type fakeSessions struct {
	live map[string]bool
	err  error
}

func (f *fakeSessions) Has(_ context.Context, sessionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.live[sessionID], nil
}

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "tillpoint",
		ExpirationMinutes: 30,
	}
}

func mintToken(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(authTestConfig(), time.Now().UTC(), sessionID)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func runAuth(t *testing.T, sessions SessionChecker, authorization string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var captured string
	handler := Auth(authTestConfig(), sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/products", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func TestAuthAcceptsLiveSession(t *testing.T) {
	sessions := &fakeSessions{live: map[string]bool{"sess-1": true}}
	rec, sessionID := runAuth(t, sessions, "Bearer "+mintToken(t, "sess-1"))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d: %s", rec.Code, rec.Body.String())
	}
	if sessionID != "sess-1" {
		t.Fatalf("expected session id in context, got %q", sessionID)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := runAuth(t, &fakeSessions{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	rec, _ := runAuth(t, &fakeSessions{}, "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	sessions := &fakeSessions{live: map[string]bool{}}
	rec, _ := runAuth(t, sessions, "Bearer "+mintToken(t, "gone"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", envelope.Error.Code)
	}
}

func TestAuthSurfacesSessionStoreErrors(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("redis down")}
	rec, _ := runAuth(t, sessions, "Bearer "+mintToken(t, "sess-1"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
