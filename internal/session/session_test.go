// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/leaddesk/internal/models"
)

func signToken(t *testing.T, userID string, role models.Role, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Email:  userID + "@crm.test",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestManager_NoSession(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()

	if _, err := m.Token(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Token() error = %v, want ErrNoSession", err)
	}
	if _, err := m.Current(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current() error = %v, want ErrNoSession", err)
	}
	if m.UserID() != "" {
		t.Error("UserID() should be empty without a session")
	}
}

func TestManager_SignInReadsClaims(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()
	token := signToken(t, "E1", models.RoleEmployee, time.Now().Add(time.Hour))

	if err := m.SignIn(ctx, token, models.User{ID: "stale", Name: "Eve", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	got, err := m.Token(ctx)
	if err != nil || got != token {
		t.Fatalf("Token() = %q, %v", got, err)
	}

	id, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if id.UserID != "E1" || id.Role != models.RoleEmployee || id.Name != "Eve" || id.Email != "E1@crm.test" {
		t.Errorf("unexpected identity: %+v", id)
	}
	if m.UserID() != "E1" {
		t.Errorf("UserID() = %q", m.UserID())
	}

	if err := m.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Token(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Token() after SignOut = %v", err)
	}
}

func TestManager_ExpiredToken(t *testing.T) {
	m := NewManager(NewMemoryStore())
	token := signToken(t, "E1", models.RoleEmployee, time.Now().Add(-time.Minute))
	if err := m.SignIn(context.Background(), token, models.User{}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Token(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Token() error = %v, want ErrSessionExpired", err)
	}
}

func TestManager_OpaqueTokenFallsBackToStoredUser(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx := context.Background()
	if err := m.SignIn(ctx, "opaque-token", models.User{ID: "M1", Role: models.RoleManager}); err != nil {
		t.Fatal(err)
	}
	if tok, err := m.Token(ctx); err != nil || tok != "opaque-token" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	id, err := m.Current(ctx)
	if err != nil || id.UserID != "M1" || id.Role != models.RoleManager {
		t.Errorf("Current() = %+v, %v", id, err)
	}
}

func TestManager_EmptyToken(t *testing.T) {
	m := NewManager(NewMemoryStore())
	if err := m.SignIn(context.Background(), "", models.User{ID: "U1"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("SignIn(\"\") error = %v", err)
	}
}

func TestBadgerStore_PersistsEncryptedToken(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	ctx := context.Background()
	token := signToken(t, "A1", models.RoleAdmin, time.Now().Add(time.Hour))

	store, err := NewStore(StoreBadger, dir, "a-long-enough-test-secret")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	m := NewManager(store)
	if err := m.SignIn(ctx, token, models.User{ID: "A1", Name: "Ada"}); err != nil {
		t.Fatal(err)
	}

	var stored []byte
	err = store.(*BadgerStore).db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if err != nil {
			return err
		}
		stored, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		t.Fatalf("read raw session: %v", err)
	}
	if strings.Contains(string(stored), token) {
		t.Error("token must not be stored in plaintext")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(StoreBadger, dir, "a-long-enough-test-secret")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	m2 := NewManager(reopened)
	defer m2.Close()

	got, err := m2.Token(ctx)
	if err != nil || got != token {
		t.Fatalf("Token() after reopen = %q, %v", got, err)
	}
	id, err := m2.Current(ctx)
	if err != nil || id.UserID != "A1" || id.Name != "Ada" {
		t.Errorf("Current() = %+v, %v", id, err)
	}
}

func TestTokenCipher(t *testing.T) {
	c, err := NewTokenCipher("secret-one-secret-one")
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := c.Encrypt("bearer-token")
	if err != nil {
		t.Fatal(err)
	}
	other, _ := c.Encrypt("bearer-token")
	if sealed == other {
		t.Error("nonces must differ between encryptions")
	}
	plain, err := c.Decrypt(sealed)
	if err != nil || plain != "bearer-token" {
		t.Errorf("Decrypt() = %q, %v", plain, err)
	}

	wrong, _ := NewTokenCipher("secret-two-secret-two")
	if _, err := wrong.Decrypt(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt with wrong key = %v", err)
	}
	if _, err := c.Decrypt("c2hvcnQ="); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt short = %v", err)
	}
	if _, err := NewTokenCipher(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewTokenCipher(\"\") = %v", err)
	}
}

func TestNewStore_Unknown(t *testing.T) {
	if _, err := NewStore("redis", "", ""); err == nil {
		t.Error("expected error for unknown store")
	}
	if _, err := NewStore(StoreBadger, t.TempDir(), ""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("badger without secret = %v", err)
	}
}
