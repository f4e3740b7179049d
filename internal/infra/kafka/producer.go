package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/infra/config"
)

// Producer owns the sarama async producer plus the goroutine draining its
// error channel. Auth events are fire-and-forget: delivery failures are
// logged and surfaced on Errors(), never bubbled to the request path.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	cfg      config.KafkaSettings
	errChan  chan error
	done     chan struct{}
}

func producerConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0

	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Flush.Frequency = 100 * time.Millisecond
	sc.Producer.Flush.Messages = 100
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true

	sc.Metadata.Retry.Max = 3
	sc.Metadata.Retry.Backoff = 250 * time.Millisecond

	return sc
}

// NewProducer connects to the configured brokers and starts the error drain.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	asyncProducer, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer: asyncProducer,
		logger:   logger,
		cfg:      cfg,
		errChan:  make(chan error, 256),
		done:     make(chan struct{}),
	}
	go p.drainErrors()

	logger.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)
	return p, nil
}

func (p *Producer) drainErrors() {
	for {
		select {
		case produceErr := <-p.producer.Errors():
			if produceErr == nil {
				continue
			}
			p.logger.Error("kafka delivery failed",
				zap.Error(produceErr.Err),
				zap.String("topic", produceErr.Msg.Topic),
				zap.Int32("partition", produceErr.Msg.Partition),
			)
			select {
			case p.errChan <- produceErr.Err:
			default:
				// Nobody is reading; drop rather than block the drain.
			}
		case <-p.done:
			return
		}
	}
}

// Producer exposes the underlying sarama producer for the event publisher.
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// Errors exposes delivery failures for external monitoring.
func (p *Producer) Errors() <-chan error {
	return p.errChan
}

// Close stops the error drain and flushes pending messages.
func (p *Producer) Close() error {
	close(p.done)
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	close(p.errChan)
	p.logger.Info("kafka producer closed")
	return nil
}

// TopicName qualifies an event type with the configured topic prefix. Already
// prefixed names pass through unchanged.
func (p *Producer) TopicName(eventType string) string {
	if p.cfg.TopicPrefix == "" {
		return eventType
	}
	prefix := p.cfg.TopicPrefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
