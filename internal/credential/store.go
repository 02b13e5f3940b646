// Package credential persists the session credential record: the
// access/refresh token pair and the cached user profile.
package credential

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
)

const (
	keyAccess  = "auth:access"
	keyRefresh = "auth:refresh"
	keyUser    = "auth:user"
)

var _ model.CredentialStore = (*Store)(nil)

// Store keeps the credential record in durable storage. Reads swallow
// storage faults and report absence instead; callers treat absence as
// "no session".
type Store struct {
	kv     model.KeyValueStore
	logger *logger.Logger
}

// NewStore creates a credential store over the given key-value store.
func NewStore(kv model.KeyValueStore, logger *logger.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Access returns the stored access token, or "" if none is stored or the
// read failed.
func (s *Store) Access(ctx context.Context) string {
	val, err := s.kv.Get(ctx, keyAccess)
	if err != nil {
		return ""
	}
	return string(val)
}

// Refresh returns the stored refresh token, or "" if none is stored or the
// read failed.
func (s *Store) Refresh(ctx context.Context) string {
	val, err := s.kv.Get(ctx, keyRefresh)
	if err != nil {
		return ""
	}
	return string(val)
}

// Profile returns the cached user profile. Absent, unreadable, and corrupt
// records all yield nil.
func (s *Store) Profile(ctx context.Context) *model.User {
	val, err := s.kv.Get(ctx, keyUser)
	if err != nil {
		return nil
	}

	var user model.User
	if err := json.Unmarshal(val, &user); err != nil {
		s.logger.Warn("credential store: discarding corrupt profile record", "error", err)
		return nil
	}
	return &user
}

// SetAccess durably stores a new access token.
func (s *Store) SetAccess(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, keyAccess, []byte(token)); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

// SetRefresh durably stores a new refresh token.
func (s *Store) SetRefresh(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, keyRefresh, []byte(token)); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// SetProfile durably stores the user profile blob.
func (s *Store) SetProfile(ctx context.Context, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.kv.Set(ctx, keyUser, data); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// SaveSession persists access token, refresh token, and profile. The three
// writes are independent; a failure in one does not roll back the others.
func (s *Store) SaveSession(ctx context.Context, access, refresh string, user model.User) error {
	if err := s.SetAccess(ctx, access); err != nil {
		return err
	}
	if err := s.SetRefresh(ctx, refresh); err != nil {
		return err
	}
	return s.SetProfile(ctx, user)
}

// Clear removes the entire credential record. Clearing an empty store is
// a no-op.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{keyAccess, keyRefresh, keyUser} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
	}
	return nil
}
