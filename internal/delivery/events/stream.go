package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/order"
	"github.com/Pesokrava/plant_store/internal/usecase/review"
)

const (
	// MaxDeliveryAttempts is the max number of delivery attempts before a message is dropped.
	// Dropping is safe for the rating worker: the next review event recomputes from the store.
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second

	streamMaxAge = 24 * time.Hour
)

// StreamSpec describes a JetStream stream
type StreamSpec struct {
	Name        string
	Subject     string
	Description string
}

// ConsumerSpec describes a durable pull consumer on a stream
type ConsumerSpec struct {
	Stream      string
	Durable     string
	Subject     string
	Description string
}

var (
	// ReviewsStream carries review lifecycle events
	ReviewsStream = StreamSpec{
		Name:        "REVIEWS",
		Subject:     review.EventsSubject,
		Description: "Review lifecycle events",
	}

	// OrdersStream carries order lifecycle events
	OrdersStream = StreamSpec{
		Name:        "ORDERS",
		Subject:     order.EventsSubject,
		Description: "Order lifecycle events",
	}

	// RatingWorkerConsumer feeds review events to the rating worker
	RatingWorkerConsumer = ConsumerSpec{
		Stream:      ReviewsStream.Name,
		Durable:     "rating-worker",
		Subject:     ReviewsStream.Subject,
		Description: "Rating worker consumer for review events",
	}

	// NotifierReviewsConsumer feeds review events to the notifier
	NotifierReviewsConsumer = ConsumerSpec{
		Stream:      ReviewsStream.Name,
		Durable:     "notifier-reviews",
		Subject:     ReviewsStream.Subject,
		Description: "Notifier consumer for review events",
	}

	// NotifierOrdersConsumer feeds order events to the notifier
	NotifierOrdersConsumer = ConsumerSpec{
		Stream:      OrdersStream.Name,
		Durable:     "notifier-orders",
		Subject:     OrdersStream.Subject,
		Description: "Notifier consumer for order events",
	}
)

// StreamConfig creates streams and consumers on demand
type StreamConfig struct {
	js     nats.JetStreamManager
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamManager, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for redeliveries: 1s, 2s, 4s, ...
// MaxDeliver N requires N-1 backoff durations since the first delivery is immediate.
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// EnsureStream creates the stream when it does not exist yet.
// Streams use limits retention so several durable consumers can read the same subject.
func (s *StreamConfig) EnsureStream(spec StreamSpec) error {
	stream, err := s.js.StreamInfo(spec.Name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":  spec.Name,
			"subject": spec.Subject,
		}).Info("Creating JetStream stream")

		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:        spec.Name,
			Subjects:    []string{spec.Subject},
			Retention:   nats.LimitsPolicy,
			Storage:     nats.FileStorage,
			Replicas:    1,
			MaxAge:      streamMaxAge,
			Discard:     nats.DiscardOld,
			Description: spec.Description,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", spec.Name, err)
		}

		s.logger.Infof("JetStream stream %s created", spec.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info for %s: %w", spec.Name, err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureConsumer creates the durable consumer when it does not exist yet.
// Acks are explicit and failed messages are redelivered with exponential backoff.
func (s *StreamConfig) EnsureConsumer(spec ConsumerSpec) error {
	consumerInfo, err := s.js.ConsumerInfo(spec.Stream, spec.Durable)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   spec.Stream,
			"consumer": spec.Durable,
		}).Info("Creating JetStream consumer")

		_, err = s.js.AddConsumer(spec.Stream, &nats.ConsumerConfig{
			Durable:       spec.Durable,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       AckWait,
			MaxDeliver:    MaxDeliveryAttempts,
			FilterSubject: spec.Subject,
			BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
			Description:   spec.Description,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer %s: %w", spec.Durable, err)
		}

		s.logger.Infof("JetStream consumer %s created", spec.Durable)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info for %s: %w", spec.Durable, err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}

// EnsureAll creates the given streams followed by the given consumers
func (s *StreamConfig) EnsureAll(streams []StreamSpec, consumers []ConsumerSpec) error {
	for _, spec := range streams {
		if err := s.EnsureStream(spec); err != nil {
			return err
		}
	}
	for _, spec := range consumers {
		if err := s.EnsureConsumer(spec); err != nil {
			return err
		}
	}
	return nil
}

// Topology lists every stream and durable consumer of the system
func Topology() ([]StreamSpec, []ConsumerSpec) {
	return []StreamSpec{ReviewsStream, OrdersStream},
		[]ConsumerSpec{RatingWorkerConsumer, NotifierReviewsConsumer, NotifierOrdersConsumer}
}
