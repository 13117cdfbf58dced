package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/protexis/ogx-gateway/internal/domain/queue"
)

const (
	// deliveryBatchSize bounds how many due messages one poll claims.
	deliveryBatchSize = 32

	// purgeInterval is how often delivered and dead messages past
	// retention are swept from the queue.
	purgeInterval = 10 * time.Minute
)

// Submitter submits queued payloads upstream and returns the
// gateway-assigned message ID.
type Submitter interface {
	SubmitMessage(ctx context.Context, destinationID string, payload []byte) (string, error)
}

// DeliveryWorker drains the submission queue: it polls for due
// messages, submits them upstream, and applies the retry policy on
// failure. Terminal messages past retention are purged periodically.
type DeliveryWorker struct {
	store        queue.Store
	client       Submitter
	stats        *StatsService
	policy       queue.Policy
	pollInterval time.Duration
	logger       *slog.Logger

	// lastPurge is touched only from the run goroutine.
	lastPurge time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeliveryWorker creates a DeliveryWorker. A non-positive
// pollInterval falls back to five seconds.
func NewDeliveryWorker(store queue.Store, client Submitter, stats *StatsService, policy queue.Policy, pollInterval time.Duration, logger *slog.Logger) *DeliveryWorker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &DeliveryWorker{
		store:        store,
		client:       client,
		stats:        stats,
		policy:       policy,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start launches the delivery loop in a background goroutine.
func (w *DeliveryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the delivery loop to exit and waits for it. In-flight
// deliveries are abandoned mid-attempt; the queue state keeps them
// retryable.
func (w *DeliveryWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *DeliveryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.deliverDue(ctx)
		w.maybePurge(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *DeliveryWorker) deliverDue(ctx context.Context) {
	due, err := w.store.NextDue(ctx, time.Now().UTC(), deliveryBatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("queue poll failed", "error", err)
		}
		return
	}

	for _, m := range due {
		if ctx.Err() != nil {
			return
		}
		w.deliver(ctx, m)
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, m *queue.Message) {
	if err := w.store.MarkInProgress(ctx, m.ID); err != nil {
		w.logger.Error("failed to claim message", "submission_id", m.ID, "error", err)
		return
	}

	gatewayID, err := w.client.SubmitMessage(ctx, m.DestinationID, m.Payload)
	if err != nil {
		w.recordFailure(ctx, m, err)
		return
	}

	if err := w.store.MarkDelivered(ctx, m.ID, gatewayID); err != nil {
		w.logger.Error("failed to mark message delivered",
			"submission_id", m.ID, "gateway_message_id", gatewayID, "error", err)
		return
	}

	w.stats.RecordDelivered()
	w.logger.Info("message delivered",
		"submission_id", m.ID,
		"gateway_message_id", gatewayID,
		"destination_id", m.DestinationID)
}

func (w *DeliveryWorker) recordFailure(ctx context.Context, m *queue.Message, cause error) {
	if ctx.Err() != nil {
		// Shutdown interrupted the attempt; leave the message claimed
		// state alone rather than burn a retry on our own cancellation.
		return
	}

	if err := w.store.MarkFailed(ctx, m.ID, cause.Error()); err != nil {
		w.logger.Error("failed to record delivery failure", "submission_id", m.ID, "error", err)
		return
	}

	updated, err := w.store.Get(ctx, m.ID)
	if err != nil {
		w.logger.Error("failed to re-read message after failure", "submission_id", m.ID, "error", err)
		return
	}

	if updated.Status == queue.StatusDead {
		w.stats.RecordDead()
		w.logger.Warn("message dead-lettered",
			"submission_id", m.ID,
			"attempts", updated.Attempts,
			"error", cause)
		return
	}

	w.stats.RecordRetried()
	w.logger.Warn("delivery failed, scheduled retry",
		"submission_id", m.ID,
		"attempts", updated.Attempts,
		"next_attempt_at", updated.NextAttemptAt,
		"error", cause)
}

func (w *DeliveryWorker) maybePurge(ctx context.Context) {
	now := time.Now().UTC()
	if !w.lastPurge.IsZero() && now.Sub(w.lastPurge) < purgeInterval {
		return
	}
	w.lastPurge = now

	cutoff := w.policy.PurgeBefore(now)
	n, err := w.store.Purge(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("queue purge failed", "error", err)
		}
		return
	}
	if n > 0 {
		w.logger.Info("purged expired messages", "count", n, "cutoff", cutoff)
	}
}
