package model

import "context"

// CredentialStore owns the durable credential record: the access/refresh
// token pair and the cached user profile. It is the sole source of truth
// for whether a session exists.
//
// Reads never fail: any storage fault is reported as an absent value, and
// callers must treat absence as "no session". Writes are independent
// durable operations with no cross-field transaction guarantee. Reads hit
// storage every time; nothing is cached in memory, since the pipeline may
// rotate the pair between any two calls.
type CredentialStore interface {
	Access(ctx context.Context) string
	Refresh(ctx context.Context) string
	Profile(ctx context.Context) *User

	SetAccess(ctx context.Context, token string) error
	SetRefresh(ctx context.Context, token string) error
	SetProfile(ctx context.Context, user User) error

	// SaveSession persists all three fields. Used at login/registration.
	SaveSession(ctx context.Context, access, refresh string, user User) error

	// Clear removes all three fields. Safe on an already-empty store.
	Clear(ctx context.Context) error
}
