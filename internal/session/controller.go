// Package session orchestrates the client session lifecycle: boot-time
// credential validation, login and registration flows, and the logout path
// that unwinds credentials, cache, and sync queue together.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/finzz-app/finzz-client/internal/api"
	"github.com/finzz-app/finzz-client/internal/cache"
	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
	"github.com/finzz-app/finzz-client/internal/queue"
)

var _ model.LogoutHandler = (*Controller)(nil)

// Controller owns the session state machine:
//
//	Initializing -> Authenticated | Unauthenticated
//	Authenticated -> Unauthenticated   (logout, forced logout)
//	Unauthenticated -> Authenticated   (login, registration)
//
// It is the only component permitted to clear the credential store, the
// cache, and the sync queue together.
type Controller struct {
	client *api.Client
	creds  model.CredentialStore
	cache  *cache.Cache
	queue  *queue.Queue
	logger *logger.Logger

	mu    sync.RWMutex
	state model.SessionState
	user  *model.User

	bg sync.WaitGroup
}

// NewController creates the controller and registers it as the pipeline's
// forced-logout handler.
func NewController(client *api.Client, creds model.CredentialStore, cache *cache.Cache, queue *queue.Queue, logger *logger.Logger) *Controller {
	c := &Controller{
		client: client,
		creds:  creds,
		cache:  cache,
		queue:  queue,
		logger: logger,
		state:  model.StateInitializing,
	}
	client.RegisterLogoutHandler(c)
	return c
}

// State returns the current session state.
func (c *Controller) State() model.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns a copy of the current user profile, or nil when no session
// is active.
func (c *Controller) User() *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Bootstrap decides the initial session state from stored credentials.
// When an access token and a cached profile both exist the session is
// treated as authenticated immediately, without blocking on the network,
// and the canonical profile is re-fetched in the background. A failed
// background refresh leaves the optimistic session intact; only the
// pipeline's forced-logout path may revoke it.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.queue.Load(ctx)

	access := c.creds.Access(ctx)
	profile := c.creds.Profile(ctx)
	if access == "" || profile == nil {
		c.setState(model.StateUnauthenticated, nil)
		c.logger.Debug("session: no stored credentials, starting unauthenticated")
		return
	}

	c.setState(model.StateAuthenticated, profile)
	c.logger.Info("session: restored from stored credentials", "user_id", profile.ID)

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.refreshProfile(ctx)
	}()
}

// refreshProfile overwrites the in-memory and stored profile with the
// backend's canonical copy. Errors are logged and otherwise ignored; a
// stale profile is acceptable.
func (c *Controller) refreshProfile(ctx context.Context) {
	resp, err := c.client.Profile(ctx)
	if err != nil {
		c.logger.Debug("session: background profile refresh failed", "error", err)
		return
	}
	if !resp.Success {
		return
	}

	c.mu.Lock()
	// forced logout may have raced the fetch; do not resurrect the session
	if c.state == model.StateAuthenticated {
		u := resp.User
		c.user = &u
	}
	c.mu.Unlock()

	if err := c.creds.SetProfile(ctx, resp.User); err != nil {
		c.logger.Warn("session: failed to store refreshed profile", "error", err)
	}
}

// Login authenticates with the backend and persists the session.
func (c *Controller) Login(ctx context.Context, phone, password string) error {
	resp, err := c.client.Login(ctx, phone, password)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return c.establish(ctx, resp)
}

// Register creates an account and persists the session.
func (c *Controller) Register(ctx context.Context, name, phone, email, password string) error {
	resp, err := c.client.Register(ctx, name, phone, email, password)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	return c.establish(ctx, resp)
}

// SendOTP requests a registration code for the given email.
func (c *Controller) SendOTP(ctx context.Context, email string) error {
	return c.client.SendOTP(ctx, email)
}

// VerifyOTPThenRegister completes the OTP-gated registration flow.
func (c *Controller) VerifyOTPThenRegister(ctx context.Context, name, phone, email, password, otp string) error {
	if err := c.client.VerifyOTP(ctx, email, otp); err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	return c.Register(ctx, name, phone, email, password)
}

func (c *Controller) establish(ctx context.Context, resp *api.AuthResponse) error {
	if err := c.creds.SaveSession(ctx, resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	u := resp.User
	c.setState(model.StateAuthenticated, &u)
	c.logger.Info("session: authenticated", "user_id", u.ID)
	return nil
}

// Logout ends the session. The backend call is best-effort; the local
// teardown happens regardless of its outcome. This is the only path that
// clears the cache wholesale.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.client.Logout(ctx); err != nil {
		c.logger.Debug("session: backend logout failed, continuing locally", "error", err)
	}

	if err := c.creds.Clear(ctx); err != nil {
		c.logger.Warn("session: failed to clear credentials", "error", err)
	}
	c.cache.ClearAll(ctx)
	if err := c.queue.Clear(ctx); err != nil {
		c.logger.Warn("session: failed to clear sync queue", "error", err)
	}

	c.setState(model.StateUnauthenticated, nil)
	c.logger.Info("session: logged out")
}

// OnForcedLogout implements model.LogoutHandler. The pipeline has already
// wiped the credential record; the controller unwinds the rest.
func (c *Controller) OnForcedLogout() {
	ctx := context.Background()
	c.cache.ClearAll(ctx)
	if err := c.queue.Clear(ctx); err != nil {
		c.logger.Warn("session: failed to clear sync queue", "error", err)
	}

	c.setState(model.StateUnauthenticated, nil)
	c.logger.Info("session: terminated after credential renewal failure")
}

func (c *Controller) setState(state model.SessionState, user *model.User) {
	c.mu.Lock()
	c.state = state
	c.user = user
	c.mu.Unlock()
}
