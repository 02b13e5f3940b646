package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finzz-app/finzz-client/internal/model"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims are the JWT claims minted by the fake backend.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	TokenType string `json:"typ"`
}

// Backend is an in-process stand-in for the finzz REST API. It issues real
// HS256 token pairs so expiry-driven 401s behave like production, and it
// counts renewal calls so tests can assert coalescing and single-retry
// behavior.
type Backend struct {
	Server *httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu           sync.Mutex
	users        map[string]userRecord // phone -> record
	otps         map[string]string     // email -> code
	refreshCalls int
	logoutCalls  int
}

type userRecord struct {
	password string
	user     model.User
}

// NewBackend starts the fake backend. The server is shut down with the
// test.
func NewBackend(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		secret:    []byte("testsecret"),
		accessTTL: 15 * time.Minute,
		users:     map[string]userRecord{},
		otps:      map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/login", b.handleLogin)
	mux.HandleFunc("POST /users/register", b.handleRegister)
	mux.HandleFunc("POST /users/send-otp", b.handleSendOTP)
	mux.HandleFunc("POST /users/verify-otp", b.handleVerifyOTP)
	mux.HandleFunc("POST /users/refresh", b.handleRefresh)
	mux.HandleFunc("GET /users/logout", b.handleLogout)
	mux.HandleFunc("GET /users/profile", b.handleProfile)
	mux.HandleFunc("/", b.handleDomain)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// AddUser registers a login fixture.
func (b *Backend) AddUser(phone, password string, user model.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[phone] = userRecord{password: password, user: user}
}

// SetAccessTTL controls the lifetime of subsequently minted access tokens.
// A negative TTL mints already-expired tokens.
func (b *Backend) SetAccessTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTTL = ttl
}

// RefreshCalls reports how many times the renewal endpoint was hit.
func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// LogoutCalls reports how many times the logout endpoint was hit.
func (b *Backend) LogoutCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logoutCalls
}

// MintAccess issues an access token for userID with the given TTL.
func (b *Backend) MintAccess(userID string, ttl time.Duration) string {
	return b.mint(userID, typeAccess, ttl)
}

// MintRefresh issues a refresh token for userID with the given TTL.
func (b *Backend) MintRefresh(userID string, ttl time.Duration) string {
	return b.mint(userID, typeRefresh, ttl)
}

func (b *Backend) mint(userID, typ string, ttl time.Duration) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        fmt.Sprintf("%s-%d", typ, now.UnixNano()),
		},
		UserID:    userID,
		TokenType: typ,
	})

	signed, err := token.SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *Backend) parse(tokenString, wantType string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.TokenType != wantType {
		return "", fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims.UserID, nil
}

func (b *Backend) issuePair(userID string) (access, refresh string) {
	b.mu.Lock()
	ttl := b.accessTTL
	b.mu.Unlock()
	return b.mint(userID, typeAccess, ttl), b.mint(userID, typeRefresh, 30*24*time.Hour)
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "unauthorized",
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	b.mu.Lock()
	rec, ok := b.users[req.Phone]
	b.mu.Unlock()
	if !ok || rec.password != req.Password {
		unauthorized(w)
		return
	}

	access, refresh := b.issuePair(rec.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
		"user":          rec.user,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	user := model.User{ID: "u-" + req.Phone, Name: req.Name, Phone: req.Phone, Email: req.Email}
	b.mu.Lock()
	b.users[req.Phone] = userRecord{password: req.Password, user: user}
	b.mu.Unlock()

	access, refresh := b.issuePair(user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (b *Backend) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	b.mu.Lock()
	b.otps[req.Email] = "123456"
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	b.mu.Lock()
	code, ok := b.otps[req.Email]
	b.mu.Unlock()
	if !ok || code != req.OTP {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid otp"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.refreshCalls++
	b.mu.Unlock()

	userID, err := b.parse(bearer(r), typeRefresh)
	if err != nil {
		unauthorized(w)
		return
	}

	access, refresh := b.issuePair(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.logoutCalls++
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := b.parse(bearer(r), typeAccess)
	if err != nil {
		unauthorized(w)
		return
	}

	b.mu.Lock()
	var user *model.User
	for _, rec := range b.users {
		if rec.user.ID == userID {
			u := rec.user
			user = &u
			break
		}
	}
	b.mu.Unlock()

	if user == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// handleDomain stands in for every other bearer-protected endpoint; the
// core forwards to these without knowing their payload shapes.
func (b *Backend) handleDomain(w http.ResponseWriter, r *http.Request) {
	if _, err := b.parse(bearer(r), typeAccess); err != nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
