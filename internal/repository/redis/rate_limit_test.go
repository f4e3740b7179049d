package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRepository(t *testing.T) (*RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	repo := NewRateLimitRepository(client, SlidingWindowConfig{
		KeyPrefix: "vitalink:rate-limit",
		TTL:       2 * time.Minute,
	})
	return repo, server
}

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "auth_login_ip:198.51.100.7", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "auth_login_ip:198.51.100.7", time.Minute, base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	// A different identifier keeps its own window.
	count, err = repo.CountAttempts(ctx, "auth_login_ip:203.0.113.9", time.Minute, base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts for other identifier, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindowDropsExpired(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	identifier := "password_reset_ip:198.51.100.7"

	if err := repo.RecordAttempt(ctx, identifier, base.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, identifier, base.Add(-10*time.Second)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, identifier, time.Minute, base); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, identifier, time.Minute, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the recent attempt to survive, got %d", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	identifier := "auth_login_ip:198.51.100.7"

	oldest, found, err := repo.OldestAttempt(ctx, identifier, time.Minute, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if found {
		t.Fatalf("expected no attempts, got %v", oldest)
	}

	first := base.Add(-30 * time.Second)
	if err := repo.RecordAttempt(ctx, identifier, first); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, identifier, base.Add(-5*time.Second)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	oldest, found, err = repo.OldestAttempt(ctx, identifier, time.Minute, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt inside the window")
	}
	if !oldest.Equal(first) {
		t.Fatalf("expected oldest %v, got %v", first, oldest)
	}
}
