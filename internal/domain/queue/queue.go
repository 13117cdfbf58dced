// Package queue defines the persistent submission queue: the message
// lifecycle between acceptance by the gateway and delivery to OGWS,
// including the retry and dead-letter policy.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a queued message does not exist.
var ErrNotFound = errors.New("queued message not found")

// Status is the delivery status of a queued message.
type Status string

const (
	// StatusPending means the message is waiting for delivery.
	StatusPending Status = "pending"
	// StatusInProgress means a delivery attempt is underway.
	StatusInProgress Status = "in_progress"
	// StatusDelivered means the message was accepted by OGWS.
	StatusDelivered Status = "delivered"
	// StatusFailed means the last attempt failed and a retry is scheduled.
	StatusFailed Status = "failed"
	// StatusDead means the message exhausted its retries.
	StatusDead Status = "dead"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusDead
}

// Message is one queued submission.
type Message struct {
	// ID is the gateway-assigned submission ID (UUID).
	ID string
	// PayloadHash is the xxhash64 of the canonical payload, used to
	// detect duplicate submissions.
	PayloadHash uint64
	// Payload is the validated message in wire form.
	Payload []byte
	// DestinationID is the terminal the message is addressed to.
	DestinationID string
	// SubmittedBy names the API key that submitted the message.
	SubmittedBy string
	// Status is the current delivery status.
	Status Status
	// Attempts counts delivery attempts so far.
	Attempts int
	// LastError is the diagnostic from the most recent failed attempt.
	LastError string
	// GatewayMessageID is the OGWS-assigned ID once delivered.
	GatewayMessageID string
	// CreatedAt is when the message was enqueued (UTC).
	CreatedAt time.Time
	// UpdatedAt is when the message last changed (UTC).
	UpdatedAt time.Time
	// NextAttemptAt is when the message becomes due for delivery (UTC).
	NextAttemptAt time.Time
}

// Policy is the retry and retention policy applied to the queue.
type Policy struct {
	// MaxRetries is the number of delivery attempts a message gets
	// before the dead-letter transition.
	MaxRetries int
	// RetryDelay is the delay before a failed message becomes due again.
	RetryDelay time.Duration
	// Retention is how long terminal messages are kept before purge.
	Retention time.Duration
}

// DefaultPolicy returns the standard queue policy: 5 attempts, 60s
// between attempts, terminal messages kept for 5 days.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 5,
		RetryDelay: 60 * time.Second,
		Retention:  5 * 24 * time.Hour,
	}
}

// ApplyFailure records a failed delivery attempt on m and returns the
// resulting status: StatusFailed with a scheduled retry, or StatusDead
// once MaxRetries attempts have been consumed.
func (p Policy) ApplyFailure(m *Message, errText string, now time.Time) Status {
	m.Attempts++
	m.LastError = errText
	m.UpdatedAt = now

	if m.Attempts >= p.MaxRetries {
		m.Status = StatusDead
		return StatusDead
	}
	m.Status = StatusFailed
	m.NextAttemptAt = now.Add(p.RetryDelay)
	return StatusFailed
}

// PurgeBefore returns the cutoff instant: terminal messages last
// updated before it are eligible for purge.
func (p Policy) PurgeBefore(now time.Time) time.Time {
	return now.Add(-p.Retention)
}

// Store is the persistence port for the queue.
type Store interface {
	// Enqueue stores a new message in StatusPending.
	Enqueue(ctx context.Context, m *Message) error

	// Get retrieves a queued message by ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Message, error)

	// FindByHash retrieves a non-terminal message with the given
	// payload hash, for duplicate detection.
	// Returns ErrNotFound when no duplicate is pending.
	FindByHash(ctx context.Context, hash uint64) (*Message, error)

	// NextDue returns up to limit messages due for delivery at now,
	// oldest first: pending messages and failed messages whose
	// NextAttemptAt has passed.
	NextDue(ctx context.Context, now time.Time, limit int) ([]*Message, error)

	// MarkInProgress transitions a message to StatusInProgress.
	MarkInProgress(ctx context.Context, id string) error

	// MarkDelivered transitions a message to StatusDelivered and
	// records the OGWS-assigned message ID.
	MarkDelivered(ctx context.Context, id, gatewayMessageID string) error

	// MarkFailed records a failed attempt, applying the retry policy:
	// the message moves to StatusFailed with a scheduled retry, or to
	// StatusDead once retries are exhausted.
	MarkFailed(ctx context.Context, id, errText string) error

	// DeadLetters returns messages in StatusDead, oldest first.
	DeadLetters(ctx context.Context, limit int) ([]*Message, error)

	// Purge removes terminal messages last updated before cutoff and
	// returns how many were removed.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases the store's resources.
	Close() error
}
