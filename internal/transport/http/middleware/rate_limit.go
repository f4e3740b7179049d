package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://myvitalink.app/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitStore defines the persistence operations required by the middleware.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter evaluates sliding-window rules against a shared attempt store.
// Store failures never block a request; brute-force protection degrades
// rather than taking the login endpoints down with Redis.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// windowState is the outcome of evaluating one rule for one request.
type windowState struct {
	rule       RateLimitRule
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules. Rules with
// missing identifiers or non-positive limits are dropped up front.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var tightest *windowState

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			state, err := rl.evaluate(c.Request.Context(), rule, identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", identifier),
					zap.Error(err))
				continue
			}

			if tightest == nil || tighter(*tightest, state) {
				snapshot := state
				tightest = &snapshot
			}

			if !state.allowed {
				rl.writeHeaders(c, state)
				rl.reject(c, state)
				return
			}
		}

		if tightest != nil {
			rl.writeHeaders(c, *tightest)
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, identifier string, now time.Time) (windowState, error) {
	key := fmt.Sprintf("%s:%s", rule.Name, identifier)

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	// The window slides with the oldest surviving attempt.
	reset := now.Add(rule.Window)
	if hasAttempts {
		reset = oldest.Add(rule.Window)
	}

	retryAfter := reset.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	state := windowState{
		rule:       rule,
		reset:      reset,
		retryAfter: retryAfter,
	}

	if count >= rule.Limit {
		return state, nil
	}

	// Blocked attempts are not recorded; only admitted requests consume quota.
	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowState{}, err
	}

	state.allowed = true
	state.remaining = rule.Limit - count - 1
	if state.remaining < 0 {
		state.remaining = 0
	}
	if !hasAttempts {
		state.reset = now.Add(rule.Window)
	}

	return state, nil
}

// tighter reports whether candidate should replace current as the state
// reflected in the response headers.
func tighter(current, candidate windowState) bool {
	if !candidate.allowed && current.allowed {
		return true
	}

	if candidate.allowed == current.allowed {
		if candidate.remaining < current.remaining {
			return true
		}
		if candidate.remaining == current.remaining && candidate.reset.Before(current.reset) {
			return true
		}
	}

	return false
}

func (rl *RateLimiter) writeHeaders(c *gin.Context, state windowState) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(state.rule.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))

	if !state.allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(state.retryAfter)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, state windowState) {
	seconds := retrySeconds(state.retryAfter)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
