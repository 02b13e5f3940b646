// Package api implements the authenticated request pipeline. Every
// outbound call carries the stored access token; a 401 triggers one
// coordinated credential renewal followed by a single replay, and a
// terminal renewal failure tears the session down through the registered
// logout handler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finzz-app/finzz-client/internal/logger"
	"github.com/finzz-app/finzz-client/internal/model"
)

// renewPath is the credential renewal endpoint. Requests to it bypass the
// 401 recovery logic so a rejected renewal can never recurse.
const renewPath = "/users/refresh"

// DefaultTimeout bounds every outbound call unless configured otherwise.
const DefaultTimeout = 10 * time.Second

// Client is the authenticated HTTP pipeline for the finzz backend.
type Client struct {
	baseURL string
	http    *http.Client
	creds   model.CredentialStore
	logger  *logger.Logger

	// renew coalesces concurrent renewals: the first 401 starts the
	// renewal-endpoint call and every concurrent 401 waits on the same
	// in-flight result instead of racing to rotate the pair itself.
	renew singleflight.Group

	mu     sync.RWMutex
	logout model.LogoutHandler
}

// NewClient creates a pipeline for the backend at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, creds model.CredentialStore, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		logger:  logger,
	}
}

// RegisterLogoutHandler installs the handler invoked on forced logout.
// Calls issued before registration skip the side effect.
func (c *Client) RegisterLogoutHandler(h model.LogoutHandler) {
	c.mu.Lock()
	c.logout = h
	c.mu.Unlock()
}

// Do issues an authenticated request and decodes a 2xx response body into
// out (ignored when out is nil). Non-2xx responses are returned as *Error.
// A first 401 on a non-renewal endpoint is recovered transparently when
// renewal succeeds; otherwise the caller sees the original 401 and the
// session is terminated app-wide.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	err := c.attempt(ctx, method, path, payload, out)
	if err == nil || !IsUnauthorized(err) || path == renewPath {
		return err
	}

	// First 401 on this request: renew once, then replay once.
	if renewErr := c.renewCredentials(ctx); renewErr != nil {
		// Terminal: the session is gone. The caller still sees the
		// original authorization failure, not the renewal error.
		c.logger.Info("pipeline: credential renewal failed, session terminated",
			"path", path,
			"error", renewErr)
		return err
	}

	c.logger.Debug("pipeline: credentials renewed, replaying request", "path", path)
	return c.attempt(ctx, method, path, payload, out)
}

// attempt performs a single request with the current access token. The
// token is read from storage on every attempt; it may have been rotated
// since the previous one.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.creds.Access(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// renewCredentials rotates the token pair through the renewal endpoint.
// Concurrent callers share one in-flight renewal. On terminal failure the
// credential store is wiped and the logout handler fires, both exactly
// once per coalesced renewal.
func (c *Client) renewCredentials(ctx context.Context) error {
	_, err, _ := c.renew.Do("renew", func() (any, error) {
		if err := c.doRenew(ctx); err != nil {
			c.forceLogout(ctx)
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (c *Client) doRenew(ctx context.Context) error {
	refresh := c.creds.Refresh(ctx)
	if refresh == "" {
		return model.ErrNoRefreshToken
	}

	// Bare request: the renewal call must not run through Do, or a 401
	// here would try to renew again.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+renewPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build renewal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+refresh)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("renewal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode renewal response: %w", err)
	}

	if err := c.creds.SetAccess(ctx, pair.AccessToken); err != nil {
		return err
	}
	if err := c.creds.SetRefresh(ctx, pair.RefreshToken); err != nil {
		return err
	}

	c.logger.Debug("pipeline: credential pair rotated")
	return nil
}

// forceLogout wipes the credential record and notifies the session layer.
func (c *Client) forceLogout(ctx context.Context) {
	if err := c.creds.Clear(ctx); err != nil {
		c.logger.Warn("pipeline: failed to clear credentials on forced logout", "error", err)
	}

	c.mu.RLock()
	handler := c.logout
	c.mu.RUnlock()
	if handler != nil {
		handler.OnForcedLogout()
	}
}

// newError drains the response body into a typed error. The backend's
// error envelope is `{"success": false, "message": "..."}`.
func newError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		apiErr.Message = envelope.Message
	}
	return apiErr
}
