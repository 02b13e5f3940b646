// Package cache is a read-time-TTL cache over durable storage, used to
// mask network latency on list and profile screens. The cache is
// best-effort: every storage or decoding fault is reported as a miss, and
// failures never propagate to the caller.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
)

// prefix namespaces cache entries so logout can evict them in one batch
// without touching credentials or the sync queue.
const prefix = "cache:"

// Freshness windows callers pass to Get. The max age is chosen by the
// reader, not fixed at write time, so one stored value can serve call
// sites with different staleness tolerances.
const (
	MaxAgeTransactions = 1 * time.Minute
	MaxAgeChats        = 2 * time.Minute
	MaxAgeFriends      = 5 * time.Minute
	MaxAgeStats        = 5 * time.Minute
	MaxAgeProfile      = 10 * time.Minute
)

// Well-known cache keys.
const (
	KeyChats          = "chats"
	KeyFriends        = "friends"
	KeyFriendRequests = "friend_requests"
	KeyProfile        = "profile"
	KeyExpenseLedgers = "expense_ledgers"
	KeyExpenseStats   = "expense_stats"
)

// KeyTransactions is the cache key for a chat's transaction list.
func KeyTransactions(chatID string) string { return "txns_" + chatID }

// KeyChatStats is the cache key for a chat's stats view.
func KeyChatStats(chatID string) string { return "stats_" + chatID }

// KeyExpenses is the cache key for a ledger's expense list.
func KeyExpenses(ledgerID string) string { return "expenses_" + ledgerID }

// entry is the stored envelope: the payload plus its write timestamp in
// epoch milliseconds.
type entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt int64           `json:"cached_at"`
}

// Cache stores JSON payloads with their write time and expires them lazily
// when read.
type Cache struct {
	kv     model.KeyValueStore
	logger *logger.Logger
	now    func() time.Time
}

// New creates a cache over the given key-value store.
func New(kv model.KeyValueStore, logger *logger.Logger) *Cache {
	return &Cache{kv: kv, logger: logger, now: time.Now}
}

// Get unmarshals the entry stored under key into out and reports whether a
// fresh entry was found. An entry older than maxAge is a miss and is
// eagerly deleted; there is no background sweep.
func (c *Cache) Get(ctx context.Context, key string, maxAge time.Duration, out any) bool {
	raw, err := c.kv.Get(ctx, prefix+key)
	if err != nil {
		return false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}

	age := c.now().UnixMilli() - e.CachedAt
	if age > maxAge.Milliseconds() {
		if err := c.kv.Delete(ctx, prefix+key); err != nil {
			c.logger.Debug("cache: failed to evict stale entry", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(e.Data, out); err != nil {
		return false
	}
	return true
}

// Set stores data under key with the current timestamp, overwriting any
// prior entry. Failures are swallowed; the cache must never block the
// network fetch it accelerates.
func (c *Cache) Set(ctx context.Context, key string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.Debug("cache: failed to marshal entry", "key", key, "error", err)
		return
	}

	raw, err := json.Marshal(entry{Data: payload, CachedAt: c.now().UnixMilli()})
	if err != nil {
		return
	}

	if err := c.kv.Set(ctx, prefix+key, raw); err != nil {
		c.logger.Debug("cache: failed to store entry", "key", key, "error", err)
	}
}

// Remove deletes the entry under key. Idempotent, failures swallowed.
func (c *Cache) Remove(ctx context.Context, key string) {
	if err := c.kv.Delete(ctx, prefix+key); err != nil {
		c.logger.Debug("cache: failed to remove entry", "key", key, "error", err)
	}
}

// ClearAll removes every cache entry in one batch. Used only by logout.
func (c *Cache) ClearAll(ctx context.Context) {
	if err := c.kv.DeleteByPrefix(ctx, prefix); err != nil {
		c.logger.Debug("cache: failed to clear", "error", err)
	}
}
