// Package queue holds mutation intents issued while offline and replays
// them when connectivity returns. Delivery is at-most-once: the queue is
// persisted after each mutation, an intent gets exactly one attempt per
// drain, and a failed intent stays queued with no backoff or abandonment
// policy until a caller removes it or the session is torn down.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
)

// storageKey is the single key the serialized queue lives under.
const storageKey = "sync:queue"

// Handler attempts one queued intent. A nil return removes the intent from
// the queue; an error leaves it in place for a future drain.
type Handler func(ctx context.Context, intent model.Intent) error

// Queue is an ordered, persisted list of pending mutation intents.
type Queue struct {
	mu       sync.Mutex
	items    []model.Intent
	draining bool

	kv     model.KeyValueStore
	logger *logger.Logger
}

// New creates an empty queue over the given key-value store. Call Load to
// restore intents persisted by a previous process.
func New(kv model.KeyValueStore, logger *logger.Logger) *Queue {
	return &Queue{kv: kv, logger: logger}
}

// Load restores the persisted queue. An absent record leaves the queue
// empty; unreadable and corrupt records are discarded rather than wedging
// startup.
func (q *Queue) Load(ctx context.Context) {
	raw, err := q.kv.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			q.logger.Warn("sync queue: failed to load persisted queue", "error", err)
		}
		return
	}

	var items []model.Intent
	if err := json.Unmarshal(raw, &items); err != nil {
		q.logger.Warn("sync queue: discarding corrupt queue record", "error", err)
		return
	}

	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
}

// NewIntent builds an intent with a fresh id and the current timestamp.
func NewIntent(kind model.IntentKind, endpoint string, payload any, tempID string) (model.Intent, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return model.Intent{}, fmt.Errorf("failed to marshal intent payload: %w", err)
		}
		raw = data
	}

	return model.Intent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Endpoint:   endpoint,
		Payload:    raw,
		TempID:     tempID,
		EnqueuedAt: time.Now().UnixMilli(),
	}, nil
}

// Enqueue appends the intent and persists the queue. Persist-after-mutate:
// a crash between the append and the write loses the enqueue.
func (q *Queue) Enqueue(ctx context.Context, intent model.Intent) error {
	q.mu.Lock()
	q.items = append(q.items, intent)
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	return q.persist(ctx, snapshot)
}

// All returns a snapshot of the queued intents in FIFO order.
func (q *Queue) All() []model.Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Len returns the number of queued intents.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Remove deletes the intent with the given id and persists the queue.
// Removing an absent id is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	kept := q.items[:0]
	for _, it := range q.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	q.items = kept
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	return q.persist(ctx, snapshot)
}

// Drain attempts each currently-queued intent exactly once, in enqueue
// order. Intents whose handler succeeds are removed; failures stay queued
// and the drain moves on. The snapshot is taken at the start, so intents
// enqueued mid-drain wait for a future drain. A Drain while another is
// running is a no-op.
func (q *Queue) Drain(ctx context.Context, handler Handler) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	for _, intent := range snapshot {
		if err := ctx.Err(); err != nil {
			return
		}

		if err := q.attempt(ctx, handler, intent); err != nil {
			q.logger.Info("sync queue: intent failed, keeping for retry",
				"intent_id", intent.ID,
				"endpoint", intent.Endpoint,
				"error", err)
			continue
		}

		if err := q.Remove(ctx, intent.ID); err != nil {
			q.logger.Warn("sync queue: failed to persist removal",
				"intent_id", intent.ID,
				"error", err)
		}
	}
}

// Clear empties the queue and persists the empty state.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()

	return q.persist(ctx, []model.Intent{})
}

// attempt shields the drain loop from a panicking handler; a panic counts
// as a failed attempt.
func (q *Queue) attempt(ctx context.Context, handler Handler, intent model.Intent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, intent)
}

func (q *Queue) snapshotLocked() []model.Intent {
	snapshot := make([]model.Intent, len(q.items))
	copy(snapshot, q.items)
	return snapshot
}

func (q *Queue) persist(ctx context.Context, items []model.Intent) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal sync queue: %w", err)
	}
	if err := q.kv.Set(ctx, storageKey, raw); err != nil {
		return fmt.Errorf("failed to persist sync queue: %w", err)
	}
	return nil
}
