package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finzz-app/finzz-client/internal/model"
	badgerstore "github.com/finzz-app/finzz-client/internal/storage/badger"
	"github.com/finzz-app/finzz-client/internal/testutil"
)

func newTestQueue(t *testing.T) (*Queue, *badgerstore.Store) {
	t.Helper()
	kv, err := badgerstore.NewStore(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv, testutil.MakeNoopLogger()), kv
}

func mustIntent(t *testing.T, kind model.IntentKind, endpoint string) model.Intent {
	t.Helper()
	intent, err := NewIntent(kind, endpoint, map[string]int{"amount": 100}, "")
	require.NoError(t, err)
	return intent
}

func TestQueue_EnqueueAll_FIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	b := mustIntent(t, model.IntentUpdate, "/txns/1")
	c := mustIntent(t, model.IntentDelete, "/txns/2")

	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))
	require.NoError(t, q.Enqueue(ctx, c))

	got := q.All()
	require.Len(t, got, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	// All returns a snapshot, not the live slice
	got[0].ID = "mutated"
	assert.Equal(t, a.ID, q.All()[0].ID)
}

func TestQueue_PersistenceAcrossRestart(t *testing.T) {
	ctx := context.Background()
	q, kv := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/expenses")
	require.NoError(t, q.Enqueue(ctx, a))

	// a second queue over the same storage simulates a process restart
	reloaded := New(kv, testutil.MakeNoopLogger())
	reloaded.Load(ctx)

	got := reloaded.All()
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, a.Endpoint, got[0].Endpoint)
	assert.JSONEq(t, `{"amount":100}`, string(got[0].Payload))
}

func TestQueue_Load_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	q, kv := newTestQueue(t)

	require.NoError(t, kv.Set(ctx, "sync:queue", []byte("[broken")))
	q.Load(ctx)
	assert.Zero(t, q.Len())
}

func TestQueue_Remove_Idempotent(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	b := mustIntent(t, model.IntentCreate, "/txns")
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	require.NoError(t, q.Remove(ctx, a.ID))
	require.NoError(t, q.Remove(ctx, a.ID))
	require.NoError(t, q.Remove(ctx, "never-existed"))

	got := q.All()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestQueue_Drain_PartialFailure(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	b := mustIntent(t, model.IntentUpdate, "/txns/1")
	c := mustIntent(t, model.IntentDelete, "/txns/2")
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))
	require.NoError(t, q.Enqueue(ctx, c))

	var attempts []string
	q.Drain(ctx, func(ctx context.Context, intent model.Intent) error {
		attempts = append(attempts, intent.ID)
		if intent.ID == b.ID {
			return errors.New("backend rejected")
		}
		return nil
	})

	// every intent attempted once, in order; only the failure remains
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, attempts)
	got := q.All()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestQueue_Drain_HandlerPanicIsFailure(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	require.NoError(t, q.Enqueue(ctx, a))

	q.Drain(ctx, func(ctx context.Context, intent model.Intent) error {
		panic("handler bug")
	})

	assert.Equal(t, 1, q.Len())
}

func TestQueue_Drain_NonReentrant(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	require.NoError(t, q.Enqueue(ctx, a))

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	go q.Drain(ctx, func(ctx context.Context, intent model.Intent) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	})

	<-entered
	// second drain while the first is blocked inside its handler
	q.Drain(ctx, func(ctx context.Context, intent model.Intent) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	close(release)

	// only the first drain ran the handler
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestQueue_Drain_MidDrainEnqueueWaits(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	a := mustIntent(t, model.IntentCreate, "/txns")
	require.NoError(t, q.Enqueue(ctx, a))

	late := mustIntent(t, model.IntentCreate, "/txns")
	var attempted []string
	q.Drain(ctx, func(ctx context.Context, intent model.Intent) error {
		attempted = append(attempted, intent.ID)
		// enqueue during the drain: must not be processed this pass
		return q.Enqueue(ctx, late)
	})

	assert.Equal(t, []string{a.ID}, attempted)
	got := q.All()
	require.Len(t, got, 1)
	assert.Equal(t, late.ID, got[0].ID)
}

func TestQueue_Clear(t *testing.T) {
	ctx := context.Background()
	q, kv := newTestQueue(t)

	require.NoError(t, q.Enqueue(ctx, mustIntent(t, model.IntentCreate, "/txns")))
	require.NoError(t, q.Clear(ctx))
	assert.Zero(t, q.Len())

	// persisted state is empty too
	reloaded := New(kv, testutil.MakeNoopLogger())
	reloaded.Load(ctx)
	assert.Zero(t, reloaded.Len())
}
