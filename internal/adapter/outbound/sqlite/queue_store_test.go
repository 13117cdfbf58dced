package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/protexis/ogx-gateway/internal/domain/queue"
)

func testStore(t *testing.T) *QueueStore {
	t.Helper()
	store, err := NewQueueStore(filepath.Join(t.TempDir(), "queue.db"),
		queue.Policy{MaxRetries: 3, RetryDelay: time.Minute, Retention: time.Hour})
	if err != nil {
		t.Fatalf("NewQueueStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testMessage(id string, hash uint64) *queue.Message {
	return &queue.Message{
		ID:            id,
		PayloadHash:   hash,
		Payload:       []byte(`{"Name":"m","SIN":16,"MIN":1,"Fields":[]}`),
		DestinationID: "terminal-01",
		SubmittedBy:   "ops",
	}
}

func TestQueueStore_EnqueueAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	want := testMessage("m1", 0xDEADBEEF)
	if err := store.Enqueue(ctx, want); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := store.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Errorf("Status = %s, want %s", got.Status, queue.StatusPending)
	}
	if got.PayloadHash != want.PayloadHash {
		t.Errorf("PayloadHash = %x, want %x", got.PayloadHash, want.PayloadHash)
	}
	if string(got.Payload) != string(want.Payload) {
		t.Errorf("Payload = %s", got.Payload)
	}
	if got.DestinationID != "terminal-01" || got.SubmittedBy != "ops" {
		t.Errorf("metadata mismatch: %+v", got)
	}
}

func TestQueueStore_GetMissing(t *testing.T) {
	t.Parallel()
	store := testStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestQueueStore_HashPreservesHighBit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	// Hashes above MaxInt64 must survive the int64 column round trip.
	const hash = uint64(0xFFFFFFFFFFFFFFFE)
	if err := store.Enqueue(ctx, testMessage("m1", hash)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := store.FindByHash(ctx, hash)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if got.PayloadHash != hash {
		t.Errorf("PayloadHash = %x, want %x", got.PayloadHash, hash)
	}
}

func TestQueueStore_FindByHashSkipsTerminal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	if err := store.Enqueue(ctx, testMessage("m1", 42)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.FindByHash(ctx, 42); err != nil {
		t.Fatalf("FindByHash should see pending duplicate: %v", err)
	}

	if err := store.MarkDelivered(ctx, "m1", "ogws-1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if _, err := store.FindByHash(ctx, 42); !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("delivered message should not count as duplicate, got %v", err)
	}
}

func TestQueueStore_NextDueOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	now := time.Now().UTC()
	first := testMessage("m1", 1)
	first.CreatedAt = now.Add(-2 * time.Minute)
	second := testMessage("m2", 2)
	second.CreatedAt = now.Add(-time.Minute)
	notDue := testMessage("m3", 3)
	notDue.NextAttemptAt = now.Add(time.Hour)

	for _, m := range []*queue.Message{second, first, notDue} {
		if err := store.Enqueue(ctx, m); err != nil {
			t.Fatalf("Enqueue %s: %v", m.ID, err)
		}
	}

	due, err := store.NextDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("NextDue: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d due messages, want 2", len(due))
	}
	if due[0].ID != "m1" || due[1].ID != "m2" {
		t.Errorf("due order = [%s %s], want [m1 m2]", due[0].ID, due[1].ID)
	}
}

func TestQueueStore_DeliveryLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	if err := store.Enqueue(ctx, testMessage("m1", 1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := store.MarkInProgress(ctx, "m1"); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	m, _ := store.Get(ctx, "m1")
	if m.Status != queue.StatusInProgress {
		t.Errorf("Status = %s, want %s", m.Status, queue.StatusInProgress)
	}

	if err := store.MarkDelivered(ctx, "m1", "ogws-123"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	m, _ = store.Get(ctx, "m1")
	if m.Status != queue.StatusDelivered || m.GatewayMessageID != "ogws-123" {
		t.Errorf("delivered message = %+v", m)
	}

	if err := store.MarkDelivered(ctx, "missing", "x"); !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestQueueStore_RetryThenDeadLetter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	if err := store.Enqueue(ctx, testMessage("m1", 1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Policy allows 3 attempts: two failures schedule retries.
	for i := 0; i < 2; i++ {
		if err := store.MarkFailed(ctx, "m1", "timeout"); err != nil {
			t.Fatalf("MarkFailed %d: %v", i, err)
		}
		m, _ := store.Get(ctx, "m1")
		if m.Status != queue.StatusFailed {
			t.Fatalf("attempt %d: Status = %s, want %s", i+1, m.Status, queue.StatusFailed)
		}
		if m.NextAttemptAt.Before(time.Now().UTC().Add(30 * time.Second)) {
			t.Errorf("retry not delayed: NextAttemptAt = %v", m.NextAttemptAt)
		}
	}

	// The third failure dead-letters.
	if err := store.MarkFailed(ctx, "m1", "timeout"); err != nil {
		t.Fatalf("final MarkFailed: %v", err)
	}
	m, _ := store.Get(ctx, "m1")
	if m.Status != queue.StatusDead {
		t.Errorf("Status = %s, want %s", m.Status, queue.StatusDead)
	}
	if m.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", m.Attempts)
	}
	if m.LastError != "timeout" {
		t.Errorf("LastError = %q", m.LastError)
	}

	dead, err := store.DeadLetters(ctx, 10)
	if err != nil {
		t.Fatalf("DeadLetters: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != "m1" {
		t.Errorf("dead letters = %+v", dead)
	}

	// Failed-but-retryable messages become due again; dead ones never do.
	due, err := store.NextDue(ctx, time.Now().UTC().Add(2*time.Minute), 10)
	if err != nil {
		t.Fatalf("NextDue: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("dead message should not be due, got %+v", due)
	}
}

func TestQueueStore_Purge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := testStore(t)

	if err := store.Enqueue(ctx, testMessage("old", 1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.Enqueue(ctx, testMessage("pending", 2)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.MarkDelivered(ctx, "old", "ogws-1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	// A cutoff in the future captures the delivered message but must
	// never touch non-terminal ones.
	n, err := store.Purge(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("delivered message should be purged, got %v", err)
	}
	if _, err := store.Get(ctx, "pending"); err != nil {
		t.Errorf("pending message should survive purge: %v", err)
	}
}
