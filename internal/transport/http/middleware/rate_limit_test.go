package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type stubRateLimitStore struct {
	count     int
	countErr  error
	trimErr   error
	oldest    time.Time
	hasOldest bool

	recordCalls int
}

func (s *stubRateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	return s.trimErr
}

func (s *stubRateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	return s.count, s.countErr
}

func (s *stubRateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	s.recordCalls++
	return nil
}

func (s *stubRateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	return s.oldest, s.hasOldest, nil
}

func newLimitedRouter(t *testing.T, store *stubRateLimitStore, limit int, now time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{
		Name:   "auth_login_ip",
		Limit:  limit,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "198.51.100.7", true
		},
	}))
	router.POST("/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiter_BelowLimitPasses(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store := &stubRateLimitStore{
		count:     3,
		oldest:    now.Add(-20 * time.Second),
		hasOldest: true,
	}

	router := newLimitedRouter(t, store, 10, now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected one recorded attempt, got %d", store.recordCalls)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Fatalf("unexpected limit header %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "6" {
		t.Fatalf("unexpected remaining header %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no Retry-After header, got %q", got)
	}
}

func TestRateLimiter_AtLimitRejectsWithProblemDetails(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store := &stubRateLimitStore{
		count:     10,
		oldest:    now.Add(-15 * time.Second),
		hasOldest: true,
	}

	router := newLimitedRouter(t, store, 10, now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("blocked request must not be recorded, got %d calls", store.recordCalls)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("unexpected Retry-After %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}
	if problem.RetryAfter != 45 {
		t.Fatalf("expected retry_after 45, got %d", problem.RetryAfter)
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store := &stubRateLimitStore{trimErr: errors.New("redis down")}

	router := newLimitedRouter(t, store, 10, now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no recorded attempt on store failure, got %d", store.recordCalls)
	}
}
