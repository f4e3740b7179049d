package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
)

// HTTPGateway delivers text messages through the configured SMS provider's
// HTTP API. Delivery failures surface as errors so the caller can decide
// whether the stored code remains usable.
type HTTPGateway struct {
	cfg    config.SMSSettings
	client *http.Client
	logger *zap.Logger
}

// NewHTTPGateway constructs a gateway channel from SMS settings.
func NewHTTPGateway(cfg config.SMSSettings, log *zap.Logger) *HTTPGateway {
	if log == nil {
		log = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

type gatewayRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// Send posts the message to the gateway endpoint.
func (g *HTTPGateway) Send(ctx context.Context, destination, body string) error {
	payload, err := json.Marshal(gatewayRequest{
		To:      destination,
		Message: body,
		Sender:  g.cfg.Sender,
	})
	if err != nil {
		return fmt.Errorf("encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn("sms gateway rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("destination", logger.MaskPhone(destination)),
		)
		return fmt.Errorf("sms gateway responded %d: %s", resp.StatusCode, string(snippet))
	}

	g.logger.Info("sms dispatched",
		zap.String("destination", logger.MaskPhone(destination)),
	)
	return nil
}

var _ port.MessagingChannel = (*HTTPGateway)(nil)
