// Package sqlite implements the submission queue store on SQLite.
// Suitable for single-instance deployments: the gateway fronts one
// OGWS account, so a single durable writer is the common case.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/protexis/ogx-gateway/internal/domain/queue"
)

// QueueStore implements queue.Store backed by a SQLite database.
//
// The store uses a write-ahead log (WAL) for concurrent read
// performance and a single writer connection, which is all SQLite
// supports anyway.
type QueueStore struct {
	db     *sql.DB
	policy queue.Policy
}

// NewQueueStore opens (creating if necessary) the queue database at
// dbPath and applies the given retry policy on failures.
func NewQueueStore(dbPath string, policy queue.Policy) (*QueueStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		dbPath, int((5 * time.Second).Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &QueueStore{db: db, policy: policy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize queue schema: %w", err)
	}
	return store, nil
}

func (s *QueueStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queue_messages (
		id TEXT PRIMARY KEY,
		payload_hash INTEGER NOT NULL,
		payload BLOB NOT NULL,
		destination_id TEXT NOT NULL,
		submitted_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		gateway_message_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		next_attempt_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queue_due ON queue_messages(status, next_attempt_at);
	CREATE INDEX IF NOT EXISTS idx_queue_hash ON queue_messages(payload_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Enqueue stores a new message in StatusPending.
func (s *QueueStore) Enqueue(ctx context.Context, m *queue.Message) error {
	if m.ID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.NextAttemptAt.IsZero() {
		m.NextAttemptAt = now
	}
	m.Status = queue.StatusPending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_messages
			(id, payload_hash, payload, destination_id, submitted_by, status,
			 attempts, last_error, gateway_message_id, created_at, updated_at, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, int64(m.PayloadHash), m.Payload, m.DestinationID, m.SubmittedBy,
		string(m.Status), m.Attempts, m.LastError, m.GatewayMessageID,
		m.CreatedAt.Unix(), m.UpdatedAt.Unix(), m.NextAttemptAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}

const messageColumns = `id, payload_hash, payload, destination_id, submitted_by, status,
	attempts, last_error, gateway_message_id, created_at, updated_at, next_attempt_at`

// Get retrieves a queued message by ID.
func (s *QueueStore) Get(ctx context.Context, id string) (*queue.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM queue_messages WHERE id = ?`, id)
	return scanMessage(row)
}

// FindByHash retrieves a non-terminal message with the given payload
// hash, for duplicate detection.
func (s *QueueStore) FindByHash(ctx context.Context, hash uint64) (*queue.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM queue_messages
		 WHERE payload_hash = ? AND status NOT IN (?, ?)
		 ORDER BY created_at LIMIT 1`,
		int64(hash), string(queue.StatusDelivered), string(queue.StatusDead))
	return scanMessage(row)
}

// NextDue returns up to limit messages due for delivery, oldest first.
func (s *QueueStore) NextDue(ctx context.Context, now time.Time, limit int) ([]*queue.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM queue_messages
		 WHERE status IN (?, ?) AND next_attempt_at <= ?
		 ORDER BY created_at LIMIT ?`,
		string(queue.StatusPending), string(queue.StatusFailed), now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkInProgress transitions a message to StatusInProgress.
func (s *QueueStore) MarkInProgress(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, queue.StatusInProgress, "")
}

// MarkDelivered transitions a message to StatusDelivered and records
// the OGWS-assigned message ID.
func (s *QueueStore) MarkDelivered(ctx context.Context, id, gatewayMessageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_messages
		 SET status = ?, gateway_message_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(queue.StatusDelivered), gatewayMessageID, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return requireRow(res)
}

// MarkFailed records a failed attempt, applying the retry policy.
func (s *QueueStore) MarkFailed(ctx context.Context, id, errText string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM queue_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	s.policy.ApplyFailure(m, errText, now)

	_, err = tx.ExecContext(ctx,
		`UPDATE queue_messages
		 SET status = ?, attempts = ?, last_error = ?, updated_at = ?, next_attempt_at = ?
		 WHERE id = ?`,
		string(m.Status), m.Attempts, m.LastError,
		m.UpdatedAt.Unix(), m.NextAttemptAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return tx.Commit()
}

// DeadLetters returns messages in StatusDead, oldest first.
func (s *QueueStore) DeadLetters(ctx context.Context, limit int) ([]*queue.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM queue_messages
		 WHERE status = ? ORDER BY created_at LIMIT ?`,
		string(queue.StatusDead), limit)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Purge removes terminal messages last updated before cutoff.
func (s *QueueStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_messages
		 WHERE status IN (?, ?) AND updated_at < ?`,
		string(queue.StatusDelivered), string(queue.StatusDead), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge queue: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database handle after a final WAL checkpoint.
func (s *QueueStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *QueueStore) setStatus(ctx context.Context, id string, status queue.Status, errText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_messages SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status), errText, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return queue.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*queue.Message, error) {
	var (
		m                                   queue.Message
		hash                                int64
		status                              string
		createdAt, updatedAt, nextAttemptAt int64
	)
	err := row.Scan(&m.ID, &hash, &m.Payload, &m.DestinationID, &m.SubmittedBy,
		&status, &m.Attempts, &m.LastError, &m.GatewayMessageID,
		&createdAt, &updatedAt, &nextAttemptAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan queued message: %w", err)
	}

	m.PayloadHash = uint64(hash)
	m.Status = queue.Status(status)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	m.NextAttemptAt = time.Unix(nextAttemptAt, 0).UTC()
	return &m, nil
}

func scanMessages(rows *sql.Rows) ([]*queue.Message, error) {
	var out []*queue.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queued messages: %w", err)
	}
	return out, nil
}
