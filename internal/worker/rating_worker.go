package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/delivery/events"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/review"
)

const (
	// Debounce window - collect events for same product within this duration
	defaultDebounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	attemptTimeout = 5 * time.Second
)

// Recomputer rebuilds the rating aggregate of a product from the store
type Recomputer interface {
	Recompute(ctx context.Context, productID uuid.UUID) (*domain.RatingAggregate, error)
}

// Option configures a RatingWorker
type Option func(*RatingWorker)

// WithDebounce overrides the debounce window
func WithDebounce(d time.Duration) Option {
	return func(w *RatingWorker) {
		w.debounce = d
	}
}

// RatingWorker reconciles product ratings from review events.
// Bursts of events for one product collapse into a single recompute.
type RatingWorker struct {
	aggregator Recomputer
	logger     *logger.Logger
	debounce   time.Duration

	mu             sync.Mutex
	pendingUpdates map[uuid.UUID]*pendingUpdate
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	timestamp time.Time
	timer     *time.Timer
}

// NewRatingWorker creates a new rating worker
func NewRatingWorker(aggregator Recomputer, log *logger.Logger, opts ...Option) *RatingWorker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &RatingWorker{
		aggregator:     aggregator,
		logger:         log,
		debounce:       defaultDebounceWindow,
		pendingUpdates: make(map[uuid.UUID]*pendingUpdate),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent schedules a recompute for the product named by a review event
func (w *RatingWorker) HandleEvent(_ context.Context, subject string, data []byte) error {
	var event review.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: failed to unmarshal event: %v", events.ErrMalformedEvent, err)
	}
	if event.ProductID == uuid.Nil {
		return fmt.Errorf("%w: event without product id", events.ErrMalformedEvent)
	}

	w.logger.WithFields(map[string]any{
		"subject":    subject,
		"type":       event.EventType,
		"product_id": event.ProductID.String(),
		"timestamp":  event.Timestamp,
	}).Debug("Received review event")

	w.scheduleUpdate(event.ProductID, event.Timestamp)
	return nil
}

// scheduleUpdate (re)arms the debounce timer of the product
func (w *RatingWorker) scheduleUpdate(productID uuid.UUID, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	if existing, found := w.pendingUpdates[productID]; found {
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(map[string]any{
				"product_id":  productID.String(),
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}
		// A timer that already fired releases its own slot in processUpdate
		if existing.timer.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	update := &pendingUpdate{timestamp: timestamp}
	update.timer = time.AfterFunc(w.debounce, func() {
		w.processUpdate(productID, update)
	})
	w.pendingUpdates[productID] = update
}

// processUpdate runs the recompute with retries and exponential backoff
func (w *RatingWorker) processUpdate(productID uuid.UUID, update *pendingUpdate) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pendingUpdates[productID] == update {
		delete(w.pendingUpdates, productID)
	}
	w.mu.Unlock()

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying rating update")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		if lastErr = w.recompute(w.ctx, productID); lastErr == nil {
			return
		}
	}

	w.logger.WithFields(map[string]any{
		"product_id":  productID.String(),
		"max_retries": maxRetries,
	}).Error("Rating update failed after all retries", lastErr)
}

func (w *RatingWorker) recompute(ctx context.Context, productID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	agg, err := w.aggregator.Recompute(ctx, productID)
	if err != nil {
		return err
	}
	if agg != nil {
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
			"average":    agg.Average,
			"quantity":   agg.Quantity,
		}).Info("Product rating reconciled")
	}
	return nil
}

// Shutdown stops accepting events, flushes pending recomputes once and
// waits for in-flight updates or ctx expiry
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down rating worker...")

	w.mu.Lock()
	close(w.shutdownCh)
	flush := make([]uuid.UUID, 0, len(w.pendingUpdates))
	for productID, update := range w.pendingUpdates {
		if update.timer.Stop() {
			flush = append(flush, productID)
		}
	}
	w.pendingUpdates = make(map[uuid.UUID]*pendingUpdate)
	w.mu.Unlock()

	for _, productID := range flush {
		if err := w.recompute(ctx, productID); err != nil {
			w.logger.Errorf(err, "Failed to flush rating update for product %s", productID)
		}
		w.wg.Done()
	}

	w.logger.WithFields(map[string]any{
		"flushed_updates": len(flush),
	}).Info("Flushed pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		w.logger.Info("All in-flight updates completed")
		return nil
	case <-ctx.Done():
		w.cancel()
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of pending updates
func (w *RatingWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}
