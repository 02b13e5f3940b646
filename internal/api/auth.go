package api

import (
	"context"
	"net/http"

	"github.com/finzz-app/finzz-client/internal/model"
)

// AuthResponse is the backend's login/registration envelope.
type AuthResponse struct {
	Success      bool       `json:"success"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         model.User `json:"user"`
}

// ProfileResponse is the backend's profile envelope.
type ProfileResponse struct {
	Success bool       `json:"success"`
	User    model.User `json:"user"`
}

// Login authenticates with phone and password.
func (c *Client) Login(ctx context.Context, phone, password string) (*AuthResponse, error) {
	req := map[string]string{"phone": phone, "password": password}
	out := &AuthResponse{}
	if err := c.Do(ctx, http.MethodPost, "/users/login", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a new account and returns a fresh session.
func (c *Client) Register(ctx context.Context, name, phone, email, password string) (*AuthResponse, error) {
	req := map[string]string{"name": name, "phone": phone, "email": email, "password": password}
	out := &AuthResponse{}
	if err := c.Do(ctx, http.MethodPost, "/users/register", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendOTP requests a one-time code for the given email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.Do(ctx, http.MethodPost, "/users/send-otp", map[string]string{"email": email}, nil)
}

// VerifyOTP checks a one-time code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.Do(ctx, http.MethodPost, "/users/verify-otp", map[string]string{"email": email, "otp": otp}, nil)
}

// ForgotPassword starts a password reset.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Do(ctx, http.MethodPost, "/users/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword completes a password reset with the emailed code.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	req := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	return c.Do(ctx, http.MethodPost, "/users/reset-password", req, nil)
}

// ChangePassword rotates the password of the active session.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return c.Do(ctx, http.MethodPost, "/users/change-password", req, nil)
}

// Logout notifies the backend that the session is ending.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/users/logout", nil, nil)
}

// Profile fetches the canonical user profile.
func (c *Client) Profile(ctx context.Context) (*ProfileResponse, error) {
	out := &ProfileResponse{}
	if err := c.Do(ctx, http.MethodGet, "/users/profile", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile changes the display name.
func (c *Client) UpdateProfile(ctx context.Context, name string) (*ProfileResponse, error) {
	out := &ProfileResponse{}
	if err := c.Do(ctx, http.MethodPut, "/users/profile", map[string]string{"name": name}, out); err != nil {
		return nil, err
	}
	return out, nil
}
