package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr, payload := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if payload["ok"] != true {
		t.Errorf("expected ok=true, got %v", payload["ok"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID header")
	}
}

func TestHealthEchoesRequestID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := serve(env, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	rr, payload := env.do(t, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["status"] != "ready" {
		t.Errorf("expected status=ready, got %v", payload["status"])
	}
	checks := payload["checks"].(map[string]any)
	for _, name := range []string{"docstore", "sessions", "objectStorage"} {
		check, ok := checks[name].(map[string]any)
		if !ok || check["status"] != "ok" {
			t.Errorf("check %s = %v", name, checks[name])
		}
	}
}

func TestReadyEndpoint_DocstoreDown(t *testing.T) {
	env := newTestEnv(t)
	env.store.pingErr = errors.New("connection refused")

	rr, payload := env.do(t, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if payload["ok"] != false || payload["status"] != "not_ready" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	docstore := payload["checks"].(map[string]any)["docstore"].(map[string]any)
	if docstore["status"] != "error" || docstore["error"] != "connection refused" {
		t.Fatalf("docstore check = %v", docstore)
	}
}

func TestReadyEndpoint_ObjectStorageDown(t *testing.T) {
	env := newTestEnv(t)
	env.assets.pingErr = errors.New("bucket studio-assets does not exist")

	rr, _ := env.do(t, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestOptionsPreflight(t *testing.T) {
	env := newTestEnv(t)
	rr, _ := env.do(t, http.MethodOptions, "/api/projects", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}
