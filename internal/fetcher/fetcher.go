// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

/*
Package fetcher is the read path of the dashboard: cache lookup, request
coalescing, offline fallback and completion callbacks around a fetch function.

Algorithm for Fetch(ctx, o, key, fn, opts):

 1. Offline with OfflineData set: return OfflineData, no network attempt.
 2. Unless BypassCache or ForceRefresh: a cache hit is returned as is.
 3. A call already in flight for key is joined; at most one fn runs per key.
 4. Otherwise fn runs as the pending call for key. Success writes the cache
    (unless BypassCache) and calls OnSuccess. Failure calls OnError with the
    original error and returns OfflineData when set. The pending entry is
    removed when the call settles.

Every wait is bounded by Config.Timeout. When it fires the waiter gets
ErrFetchTimeout (or OfflineData), the pending entry is forgotten so the next
call starts fresh, and fn's context is cancelled. A waiter only forgets the
call it joined, and an abandoned call never writes the cache.
*/
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/metrics"
)

// ErrFetchTimeout is returned when a fetch does not settle within the
// configured timeout.
var ErrFetchTimeout = errors.New("fetch timed out")

// Fetch outcomes recorded in leaddesk_fetch_requests_total.
const (
	outcomeCacheHit  = "cache_hit"
	outcomeNetwork   = "network"
	outcomeCoalesced = "coalesced"
	outcomeOffline   = "offline"
	outcomeFallback  = "fallback"
	outcomeError     = "error"
	outcomeTimeout   = "timeout"
)

// Config configures an Orchestrator.
type Config struct {
	// Timeout bounds each fetch; 0 disables it.
	Timeout time.Duration
}

// Orchestrator owns the pending-request table and the offline flag. One
// instance is shared by every view of a process.
type Orchestrator struct {
	cache   *cache.Manager
	timeout time.Duration
	offline atomic.Bool

	mu      sync.Mutex
	pending map[string]*call
}

// New creates an Orchestrator reading from and writing to c.
func New(c *cache.Manager, cfg Config) *Orchestrator {
	return &Orchestrator{cache: c, timeout: cfg.Timeout, pending: make(map[string]*call)}
}

// Cache returns the cache the orchestrator writes to.
func (o *Orchestrator) Cache() *cache.Manager { return o.cache }

// Offline reports whether the process is marked offline.
func (o *Orchestrator) Offline() bool { return o.offline.Load() }

// SetOffline marks the process offline or online.
func (o *Orchestrator) SetOffline(offline bool) {
	if o.offline.Swap(offline) == offline {
		return
	}
	metrics.SetOffline(offline)
	logging.Info().Bool("offline", offline).Msg("Fetch orchestrator connectivity changed")
}

// FollowBackend ties the offline flag to the backend circuit breaker: an
// open circuit marks the process offline, a closed one brings it back.
func (o *Orchestrator) FollowBackend(c *backend.Client) {
	c.OnStateChange(o.SetOffline)
}

// Options tune a single Fetch call.
type Options[T any] struct {
	// BypassCache skips the cache for both read and write.
	BypassCache bool
	// ForceRefresh skips the cache read but still stores the result.
	ForceRefresh bool
	// OfflineData is returned when offline or when the fetch fails.
	OfflineData *T

	OnSuccess func(T)
	OnError   func(error)
}

// WithOfflineData returns a copy of opts with v as the fallback value.
func (opts Options[T]) WithOfflineData(v T) Options[T] {
	opts.OfflineData = &v
	return opts
}

// Fetch returns the value for key, calling fn only when neither the cache nor
// an in-flight call for key can answer.
func Fetch[T any](ctx context.Context, o *Orchestrator, key string, fn func(context.Context) (T, error), opts Options[T]) (T, error) {
	var zero T

	if opts.OfflineData != nil && o.Offline() {
		metrics.RecordFetch(outcomeOffline)
		return *opts.OfflineData, nil
	}

	if !opts.BypassCache && !opts.ForceRefresh {
		if v, ok := cache.GetAs[T](o.cache, key); ok {
			metrics.RecordFetch(outcomeCacheHit)
			return v, nil
		}
	}

	c, joined := o.join(key)
	if !joined {
		go o.run(ctx, key, c, func(callCtx context.Context) (any, error) { return fn(callCtx) }, !opts.BypassCache)
	}

	var timeout <-chan time.Time
	if o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var failed error
	select {
	case <-c.done:
		failed = c.err
	case <-timeout:
		o.forget(key, c)
		failed = fmt.Errorf("%w: %s after %s", ErrFetchTimeout, key, o.timeout)
	case <-ctx.Done():
		failed = ctx.Err()
	}

	if failed == nil {
		v, ok := c.val.(T)
		if !ok {
			failed = fmt.Errorf("fetch %s: in-flight call produced %T", key, c.val)
		} else {
			if joined {
				metrics.RecordFetch(outcomeCoalesced)
			} else {
				metrics.RecordFetch(outcomeNetwork)
			}
			if opts.OnSuccess != nil {
				opts.OnSuccess(v)
			}
			return v, nil
		}
	}

	if opts.OnError != nil {
		opts.OnError(failed)
	}
	if opts.OfflineData != nil {
		metrics.RecordFetch(outcomeFallback)
		logging.Ctx(ctx).Debug().Err(failed).Str("key", key).Msg("Fetch failed, serving offline data")
		return *opts.OfflineData, nil
	}
	if errors.Is(failed, ErrFetchTimeout) {
		metrics.RecordFetch(outcomeTimeout)
	} else {
		metrics.RecordFetch(outcomeError)
	}
	return zero, failed
}

// call is one in-flight fetch. val and err are written before done closes.
type call struct {
	done chan struct{}
	val  any
	err  error
}

// join returns the pending call for key, registering a new one when none is
// in flight. joined is false when the caller must start the call.
func (o *Orchestrator) join(key string) (c *call, joined bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.pending[key]; ok {
		return existing, true
	}
	c = &call{done: make(chan struct{})}
	o.pending[key] = c
	return c, false
}

// forget drops key from the pending table if it still belongs to c, so a
// waiter of an abandoned call cannot evict a newer one.
func (o *Orchestrator) forget(key string, c *call) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending[key] == c {
		delete(o.pending, key)
	}
}

// run executes fn for c. Only a call still registered for key writes the
// cache; a call forgotten after a timeout settles its waiters and nothing else.
func (o *Orchestrator) run(ctx context.Context, key string, c *call, fn func(context.Context) (any, error), store bool) {
	callCtx := context.WithoutCancel(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.val, c.err = nil, fmt.Errorf("fetch %s: panic: %v", key, r)
		}
		o.mu.Lock()
		if o.pending[key] == c {
			if c.err == nil && store {
				o.cache.Set(key, c.val)
			}
			delete(o.pending, key)
		} else if c.err == nil {
			logging.Ctx(ctx).Debug().Str("key", key).Msg("Discarding result of abandoned fetch")
		}
		o.mu.Unlock()
		close(c.done)
	}()

	start := time.Now()
	c.val, c.err = fn(callCtx)
	metrics.RecordNetworkFetch(time.Since(start))
}
