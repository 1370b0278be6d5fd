// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Store persists the single active session.
type Store interface {
	// Load returns ErrNoSession when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
	Close() error
}

// Store types accepted by NewStore.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// NewStore opens the configured store. secret encrypts the token at rest in
// the badger store.
func NewStore(kind, path, secret string) (Store, error) {
	switch kind {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreBadger:
		cipher, err := NewTokenCipher(secret)
		if err != nil {
			return nil, err
		}
		opts := badger.DefaultOptions(path)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for session: %w", err)
		}
		return NewBadgerStore(db, cipher), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu sync.RWMutex
	s  *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.s == nil {
		return nil, ErrNoSession
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	cp := *s
	m.mu.Lock()
	m.s = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.s = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

const sessionKey = "session:current"

// BadgerStore persists the session across restarts with the token encrypted.
type BadgerStore struct {
	db     *badger.DB
	cipher *TokenCipher
}

// NewBadgerStore takes ownership of db.
func NewBadgerStore(db *badger.DB, cipher *TokenCipher) *BadgerStore {
	return &BadgerStore{db: db, cipher: cipher}
}

func (b *BadgerStore) Load(context.Context) (*Session, error) {
	var stored Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		return nil, err
	}

	token, err := b.cipher.Decrypt(stored.Token)
	if err != nil {
		return nil, fmt.Errorf("decrypt session token: %w", err)
	}
	stored.Token = token
	return &stored, nil
}

func (b *BadgerStore) Save(_ context.Context, s *Session) error {
	sealed, err := b.cipher.Encrypt(s.Token)
	if err != nil {
		return fmt.Errorf("encrypt session token: %w", err)
	}
	stored := *s
	stored.Token = sealed

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), data)
	})
}

func (b *BadgerStore) Clear(context.Context) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
