package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/metrics"
)

// ErrPublisherOpen is returned while the circuit breaker rejects publishes
var ErrPublisherOpen = gobreaker.ErrOpenState

type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// BreakerSettings controls when publishing is suspended after repeated failures
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// DefaultBreakerSettings trips after half of at least five publishes fail
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  5,
		FailureRatio: 0.5,
		OpenTimeout:  30 * time.Second,
	}
}

// Publisher handles publishing events to NATS JetStream
type Publisher struct {
	nc      *nats.Conn
	js      jetStreamPublisher
	breaker *gobreaker.CircuitBreaker[*nats.PubAck]
	logger  *logger.Logger
}

// NewPublisher connects to NATS and returns a JetStream publisher
func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := Connect(cfg.NATS.URL, "plant-store-api", log)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	return newPublisher(nc, js, DefaultBreakerSettings(), log), nil
}

func newPublisher(nc *nats.Conn, js jetStreamPublisher, settings BreakerSettings, log *logger.Logger) *Publisher {
	breaker := gobreaker.NewCircuitBreaker[*nats.PubAck](gobreaker.Settings{
		Name:        "nats-publisher",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
			metrics.PublisherBreakerState.Set(breakerStateValue(to))
		},
	})
	metrics.PublisherBreakerState.Set(breakerStateValue(gobreaker.StateClosed))

	return &Publisher{
		nc:      nc,
		js:      js,
		breaker: breaker,
		logger:  log,
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Publish stores a message on a JetStream subject and waits for the ack.
// While the breaker is open the call fails fast with ErrPublisherOpen.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	pubAck, err := p.breaker.Execute(func() (*nats.PubAck, error) {
		return p.js.Publish(subject, data, nats.Context(ctx))
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.EventsPublished.WithLabelValues(subject, outcome).Inc()

		p.logger.WithFields(map[string]interface{}{
			"subject": subject,
			"outcome": outcome,
		}).Error("Failed to publish message to JetStream", err)
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(subject, "ok").Inc()
	p.logger.WithFields(map[string]interface{}{
		"subject":  subject,
		"stream":   pubAck.Stream,
		"sequence": pubAck.Sequence,
	}).Debug("Published message to JetStream")

	return nil
}

// State reports the current breaker state
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

// Streams returns a helper that provisions streams and consumers
func (p *Publisher) Streams() (*StreamConfig, error) {
	js, err := p.nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return NewStreamConfig(js, p.logger), nil
}

// Ping reports an error unless the NATS connection is established
func (p *Publisher) Ping(context.Context) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return errors.New("nats connection is not established")
	}
	return nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
		p.logger.Info("NATS publisher connection closed")
	}
}

// Connect opens a NATS connection that keeps reconnecting and logs its state changes
func Connect(url, name string, log *logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("Disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
