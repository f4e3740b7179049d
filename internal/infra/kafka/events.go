package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID     string           `json:"event_id"`
	EventType   string           `json:"event_type"`
	PrincipalID string           `json:"principal_id,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Version     string           `json:"version"`
	Payload     any              `json:"payload"`
	Metadata    envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, principalID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		PrincipalID: principalID,
		Timestamp:   ts.UTC(),
		Version:     schemaVersion,
		Payload:     payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes admin.auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		PrincipalID  string         `json:"principal_id"`
		Kind         string         `json:"kind"`
		Email        string         `json:"email,omitempty"`
		IP           string         `json:"ip,omitempty"`
		SecondFactor bool           `json:"second_factor"`
		At           time.Time      `json:"at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID:  event.PrincipalID,
		Kind:         string(event.Kind),
		Email:        event.Email,
		IP:           event.IP,
		SecondFactor: event.SecondFactor,
		At:           event.At.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, "admin.auth.login.succeeded", event.PrincipalID, event.At, payload)
}

// PublishLoginFailed publishes admin.auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		PrincipalID string         `json:"principal_id"`
		Kind        string         `json:"kind"`
		Email       string         `json:"email,omitempty"`
		IP          string         `json:"ip,omitempty"`
		Stage       string         `json:"stage"`
		Reason      string         `json:"reason"`
		At          time.Time      `json:"at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID: event.PrincipalID,
		Kind:        string(event.Kind),
		Email:       event.Email,
		IP:          event.IP,
		Stage:       event.Stage,
		Reason:      event.Reason,
		At:          event.At.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, "admin.auth.login.failed", event.PrincipalID, event.At, payload)
}

// PublishLockoutTriggered publishes admin.auth.lockout.triggered events.
func (p *EventPublisher) PublishLockoutTriggered(ctx context.Context, event domain.LockoutTriggeredEvent) error {
	payload := struct {
		PrincipalID string         `json:"principal_id"`
		Kind        string         `json:"kind"`
		Scope       string         `json:"scope"`
		LockedUntil time.Time      `json:"locked_until"`
		At          time.Time      `json:"at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID: event.PrincipalID,
		Kind:        string(event.Kind),
		Scope:       event.Scope,
		LockedUntil: event.LockedUntil.UTC(),
		At:          event.At.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, "admin.auth.lockout.triggered", event.PrincipalID, event.At, payload)
}

// PublishCodeDispatched publishes admin.auth.code.dispatched events.
func (p *EventPublisher) PublishCodeDispatched(ctx context.Context, event domain.CodeDispatchedEvent) error {
	payload := struct {
		PrincipalID string         `json:"principal_id"`
		Kind        string         `json:"kind"`
		Destination string         `json:"destination,omitempty"`
		ExpiresAt   time.Time      `json:"expires_at"`
		At          time.Time      `json:"at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID: event.PrincipalID,
		Kind:        string(event.Kind),
		Destination: event.Destination,
		ExpiresAt:   event.ExpiresAt.UTC(),
		At:          event.At.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, "admin.auth.code.dispatched", event.PrincipalID, event.At, payload)
}

// PublishSessionRevoked publishes admin.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		PrincipalID string         `json:"principal_id"`
		Kind        string         `json:"kind"`
		Reason      string         `json:"reason"`
		At          time.Time      `json:"at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID: event.PrincipalID,
		Kind:        string(event.Kind),
		Reason:      event.Reason,
		At:          event.At.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, "admin.session.revoked", event.PrincipalID, event.At, payload)
}

// PublishPasswordResetRequested publishes admin.auth.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		PrincipalID       string         `json:"principal_id"`
		Kind              string         `json:"kind"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		ExpiresAt         time.Time      `json:"expires_at"`
		At                time.Time      `json:"at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		PrincipalID:       event.PrincipalID,
		Kind:              string(event.Kind),
		MaskedDestination: event.MaskedDestination,
		ExpiresAt:         event.ExpiresAt.UTC(),
		At:                event.At.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, "admin.auth.password.reset_requested", event.PrincipalID, event.At, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
