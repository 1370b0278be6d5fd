// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package cache provides the in-memory TTL + LRU store behind the fetch
// orchestrator.
//
// Entries expire lazily: an entry older than the TTL is never returned and is
// removed the next time it is touched. When a new key is inserted into a full
// cache the least-recently-used key is evicted, regardless of its age.
//
// A Manager is an explicit object: create one per process with New and hand it
// to the orchestrator and the notifier. Tests inject a fake clock with
// WithClock.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/leaddesk/internal/metrics"
)

// Clock returns the current time.
type Clock func() time.Time

// Config sizes a Manager.
type Config struct {
	// TTL is how long an entry stays valid after it was stored.
	TTL time.Duration

	// Capacity is the maximum number of entries.
	Capacity int

	// Name labels the cache in metrics. Default: "fetch".
	Name string
}

// DefaultConfig returns a five minute TTL and room for 100 entries.
func DefaultConfig() Config {
	return Config{TTL: 5 * time.Minute, Capacity: 100, Name: "fetch"}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Size        int
}

// HitRate returns hits / (hits + misses) as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type entry struct {
	key      string
	value    any
	storedAt time.Time
	prev     *entry
	next     *entry
}

// Manager is a TTL + LRU key-value store safe for concurrent use.
//
// Recency is kept in a doubly linked list between two sentinels: head.next is
// the most recently used entry and tail.prev the least recently used one.
type Manager struct {
	mu sync.Mutex

	ttl      time.Duration
	capacity int
	name     string
	now      Clock

	items map[string]*entry
	head  *entry
	tail  *entry

	stats Stats
}

// New creates a Manager. Non-positive TTL or capacity fall back to
// DefaultConfig values.
func New(cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}

	m := &Manager{
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		name:     cfg.Name,
		now:      time.Now,
		items:    make(map[string]*entry, cfg.Capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	m.head.next = m.tail
	m.tail.prev = m.head

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key while it is younger than the TTL.
// A hit marks the key most recently used; an expired entry is removed and
// reported as a miss.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		m.recordMiss()
		return nil, false
	}

	if m.now().Sub(e.storedAt) >= m.ttl {
		m.removeEntry(e)
		m.stats.Expirations++
		metrics.CacheEvictions.WithLabelValues(m.name, "expired").Inc()
		m.recordMiss()
		return nil, false
	}

	m.moveToFront(e)
	m.stats.Hits++
	metrics.CacheHits.WithLabelValues(m.name).Inc()
	return e.value, true
}

// Set stores value under key and marks it most recently used. Inserting a new
// key into a full cache first evicts the least recently used key.
func (m *Manager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.items[key]; ok {
		e.value = value
		e.storedAt = now
		m.moveToFront(e)
		return
	}

	for len(m.items) >= m.capacity {
		if !m.evictOldest() {
			break
		}
	}

	e := &entry{key: key, value: value, storedAt: now}
	m.addToFront(e)
	m.items[key] = e
	metrics.CacheSize.WithLabelValues(m.name).Set(float64(len(m.items)))
}

// Remove deletes key. Removing an absent key is a no-op.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[key]; ok {
		m.removeEntry(e)
		metrics.CacheEvictions.WithLabelValues(m.name, "invalidated").Inc()
	}
}

// Clear removes every key starting with prefix and returns how many were
// removed. An empty prefix wipes the whole cache. Matching is a literal string
// prefix test, not a pattern.
func (m *Manager) Clear(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix == "" {
		n := len(m.items)
		m.items = make(map[string]*entry, m.capacity)
		m.head.next = m.tail
		m.tail.prev = m.head
		m.afterInvalidate(n)
		return n
	}

	removed := 0
	for e := m.head.next; e != m.tail; {
		next := e.next
		if strings.HasPrefix(e.key, prefix) {
			m.removeEntry(e)
			removed++
		}
		e = next
	}
	m.afterInvalidate(removed)
	return removed
}

// Len returns the number of stored entries, including expired ones that have
// not been touched yet.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Keys returns the stored keys from most to least recently used.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.items))
	for e := m.head.next; e != m.tail; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.items)
	return s
}

// Capacity returns the configured entry limit.
func (m *Manager) Capacity() int { return m.capacity }

// TTL returns the configured time-to-live.
func (m *Manager) TTL() time.Duration { return m.ttl }

// GetAs is Get with a type assertion. A stored value of another type counts
// as absent.
func GetAs[T any](m *Manager, key string) (T, bool) {
	var zero T
	v, ok := m.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

func (m *Manager) recordMiss() {
	m.stats.Misses++
	metrics.CacheMisses.WithLabelValues(m.name).Inc()
}

func (m *Manager) afterInvalidate(n int) {
	if n > 0 {
		metrics.CacheEvictions.WithLabelValues(m.name, "invalidated").Add(float64(n))
	}
	metrics.CacheSize.WithLabelValues(m.name).Set(float64(len(m.items)))
}

// List operations (must be called with mu held).

func (m *Manager) addToFront(e *entry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

func (m *Manager) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m.addToFront(e)
}

func (m *Manager) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	delete(m.items, e.key)
	metrics.CacheSize.WithLabelValues(m.name).Set(float64(len(m.items)))
}

func (m *Manager) evictOldest() bool {
	oldest := m.tail.prev
	if oldest == m.head {
		return false
	}
	m.removeEntry(oldest)
	m.stats.Evictions++
	metrics.CacheEvictions.WithLabelValues(m.name, "capacity").Inc()
	return true
}
