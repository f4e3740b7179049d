package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	shared *zap.Logger
	once   sync.Once
)

// RequestIDKey stores the request identifier on a context.
type RequestIDKey struct{}

// New builds the process-wide zap logger. Production gets JSON output;
// everything else gets the colored development encoder. Repeated calls return
// the same instance.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		shared, err = cfg.Build()
	})
	return shared, err
}

// WithContext returns the shared logger annotated with the request id carried
// by ctx, when present.
func WithContext(ctx context.Context) *zap.Logger {
	if shared == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return shared
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return shared.With(zap.String("request_id", id))
	}
	return shared
}
