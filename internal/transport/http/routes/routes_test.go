package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/infra/config"
	httproutes "github.com/ehevelone/vitalink-app/internal/transport/http/routes"
)

type failingChecker struct{}

func (failingChecker) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestEngine(t *testing.T, deps httproutes.Dependencies) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if deps.Config == nil {
		deps.Config = &config.AppConfig{App: config.AppSettings{Env: "test"}}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return httproutes.Register(deps)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine(t, httproutes.Dependencies{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	r := newTestEngine(t, httproutes.Dependencies{
		Database: failingChecker{},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("expected check detail in body, got %s", w.Body.String())
	}
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	r := newTestEngine(t, httproutes.Dependencies{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestLoginRejectsUnknownKind(t *testing.T) {
	r := newTestEngine(t, httproutes.Dependencies{})

	body := `{"kind":"superuser","email":"erin@myvitalink.app","password":"pw"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestInviteRequiresSession(t *testing.T) {
	r := newTestEngine(t, httproutes.Dependencies{})

	body := `{"email":"new.manager@myvitalink.app"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/onboarding/invites", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
