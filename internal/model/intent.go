package model

import "encoding/json"

// IntentKind enumerates mutation kinds a queued intent can carry.
type IntentKind string

const (
	// IntentCreate creates a new record on the backend.
	IntentCreate IntentKind = "create"
	// IntentUpdate edits an existing record.
	IntentUpdate IntentKind = "update"
	// IntentDelete removes a record.
	IntentDelete IntentKind = "delete"
)

// Intent describes a mutation to be replayed against the backend,
// independent of whether it has been attempted yet. Intents are immutable
// once enqueued; ID is the deduplication and removal key.
type Intent struct {
	ID       string          `json:"id"`
	Kind     IntentKind      `json:"kind"`
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	// TempID reconciles an optimistically-created local placeholder with
	// the server-assigned identifier once the intent succeeds.
	TempID     string `json:"temp_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"`
}
