// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package session holds the signed-in user's bearer token and identity.
//
// The token is issued by the CRM backend; this package never verifies its
// signature, it only reads the claims it needs (user id, role, expiry) and
// hands the raw token to the HTTP client for every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/leaddesk/internal/models"
)

var (
	// ErrNoSession is returned when nobody is signed in.
	ErrNoSession = errors.New("no active session")

	// ErrSessionExpired is returned when the stored token is past its expiry.
	ErrSessionExpired = errors.New("session token expired")
)

// Session is what a Store persists.
type Session struct {
	Token    string      `json:"token"`
	User     models.User `json:"user"`
	SignedIn time.Time   `json:"signedIn"`
}

// Claims are the token fields LeadDesk reads.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity describes the signed-in user.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Role      models.Role
	ExpiresAt time.Time
}

// ParseClaims reads claims from token without verifying its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// Manager is the process-wide session. It implements backend.TokenSource.
type Manager struct {
	store Store
	now   func() time.Time

	mu      sync.RWMutex
	current *Session
	loaded  bool
}

// NewManager creates a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// SignIn stores token and user as the active session.
func (m *Manager) SignIn(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrNoSession)
	}
	s := &Session{Token: token, User: user, SignedIn: m.now()}
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.current, m.loaded = s, true
	m.mu.Unlock()
	return nil
}

// SignOut forgets the active session.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.current, m.loaded = nil, true
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

func (m *Manager) session(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	s, loaded := m.current, m.loaded
	m.mu.RUnlock()
	if loaded {
		if s == nil {
			return nil, ErrNoSession
		}
		return s, nil
	}

	s, err := m.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, err
	}
	m.mu.Lock()
	m.current, m.loaded = s, true
	m.mu.Unlock()
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// Token returns the bearer token, or an error when there is no usable one.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.session(ctx)
	if err != nil {
		return "", err
	}
	if claims, err := ParseClaims(s.Token); err == nil && claims.ExpiresAt != nil {
		if !m.now().Before(claims.ExpiresAt.Time) {
			return "", ErrSessionExpired
		}
	}
	return s.Token, nil
}

// Current returns the signed-in identity. Token claims take precedence over
// the stored user record.
func (m *Manager) Current(ctx context.Context) (Identity, error) {
	s, err := m.session(ctx)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UserID: s.User.ID, Name: s.User.Name, Email: s.User.Email, Role: s.User.Role}
	if claims, err := ParseClaims(s.Token); err == nil {
		if claims.UserID != "" {
			id.UserID = claims.UserID
		}
		if claims.Role != "" {
			id.Role = claims.Role
		}
		if claims.Email != "" {
			id.Email = claims.Email
		}
		if claims.ExpiresAt != nil {
			id.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: session has no user id", ErrNoSession)
	}
	return id, nil
}

// UserID returns the signed-in user's id, or "" when nobody is signed in.
func (m *Manager) UserID() string {
	id, err := m.Current(context.Background())
	if err != nil {
		return ""
	}
	return id.UserID
}

// Close releases the store.
func (m *Manager) Close() error {
	return m.store.Close()
}
