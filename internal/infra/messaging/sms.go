package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
)

// LogChannel is the development stand-in for an SMS gateway: it records each
// message instead of delivering it. Production deployments swap in a real
// gateway implementation behind the same port.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel constructs a logging message channel.
func NewLogChannel(log *zap.Logger) *LogChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogChannel{logger: log}
}

// Send logs the message with a masked destination and reports success.
func (c *LogChannel) Send(ctx context.Context, destination, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("sms dispatched (log channel)",
		zap.String("destination", logger.MaskPhone(destination)),
		zap.Int("body_length", len(body)),
	)
	return nil
}

var _ port.MessagingChannel = (*LogChannel)(nil)
