package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// ErrMalformedEvent marks a payload that can never be processed; such
// messages are terminated instead of redelivered
var ErrMalformedEvent = errors.New("malformed event")

const (
	fetchBatch   = 10
	fetchMaxWait = 5 * time.Second
	fetchBackoff = 5 * time.Second
)

// Handler processes the payload of one event
type Handler func(ctx context.Context, subject string, data []byte) error

// Consumer pulls events from durable JetStream consumers
type Consumer struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewConsumer connects to NATS and returns a JetStream consumer
func NewConsumer(cfg *config.Config, name string, log *logger.Logger) (*Consumer, error) {
	nc, err := Connect(cfg.NATS.URL, name, log)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

// Streams returns a helper that provisions streams and consumers
func (c *Consumer) Streams() *StreamConfig {
	return NewStreamConfig(c.js, c.logger)
}

// Consume binds to the durable consumer and processes messages until ctx is cancelled
func (c *Consumer) Consume(ctx context.Context, spec ConsumerSpec, handler Handler) error {
	sub, err := c.js.PullSubscribe(spec.Subject, spec.Durable, nats.Bind(spec.Stream, spec.Durable), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("failed to subscribe to consumer %s: %w", spec.Durable, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warnf("Failed to unsubscribe from %s: %v", spec.Durable, err)
		}
	}()

	c.logger.WithFields(map[string]any{
		"stream":   spec.Stream,
		"consumer": spec.Durable,
	}).Info("Subscribed to JetStream consumer")

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.Errorf(err, "Failed to fetch messages from %s", spec.Durable)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			c.dispatch(ctx, msg, msg.Subject, msg.Data, handler)
		}
	}
}

// acknowledger is the acknowledgement surface of a JetStream message
type acknowledger interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// dispatch runs the handler and settles the message: ack on success,
// term on malformed payloads and nak otherwise so JetStream redelivers
func (c *Consumer) dispatch(ctx context.Context, msg acknowledger, subject string, data []byte, handler Handler) {
	err := handler(ctx, subject, data)

	var settle error
	switch {
	case err == nil:
		settle = msg.Ack()
	case errors.Is(err, ErrMalformedEvent):
		c.logger.Error("Dropping malformed event", err)
		settle = msg.Term()
	default:
		c.logger.Errorf(err, "Failed to handle event on %s", subject)
		settle = msg.Nak()
	}

	if settle != nil {
		c.logger.Error("Failed to settle message", settle)
	}
}

// Close closes the NATS connection
func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// eventEnvelope is the part shared by order and review events
type eventEnvelope struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// LoggingHandler creates a handler that logs every event it receives
func LoggingHandler(log *logger.Logger) Handler {
	return func(_ context.Context, subject string, data []byte) error {
		var envelope eventEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}

		log.WithFields(map[string]interface{}{
			"subject":    subject,
			"event_type": envelope.EventType,
			"emitted_at": envelope.Timestamp,
			"payload":    payload,
		}).Info("Received event")
		return nil
	}
}
