package model

import "context"

// KeyValueStore abstracts the durable device store shared by the credential
// record, the cache, and the sync queue. Implementations guarantee per-key
// atomicity only.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}
