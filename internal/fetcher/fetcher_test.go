// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/metrics"
)

func newOrchestrator(t *testing.T, timeout time.Duration) *Orchestrator {
	t.Helper()
	c := cache.New(cache.Config{TTL: time.Minute, Capacity: 16, Name: "fetcher_test"})
	return New(c, Config{Timeout: timeout})
}

type countingFn struct {
	calls atomic.Int32
	value string
	err   error
}

func (f *countingFn) fn(context.Context) (string, error) {
	f.calls.Add(1)
	return f.value, f.err
}

func TestFetch_CachesResult(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	f := &countingFn{value: "v1"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, o, "k", f.fn, Options[string]{})
		if err != nil || got != "v1" {
			t.Fatalf("Fetch() = %q, %v", got, err)
		}
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fn called %d times, want 1", n)
	}
}

func TestFetch_CoalescesConcurrentCalls(t *testing.T) {
	o := newOrchestrator(t, 5*time.Second)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = Fetch(context.Background(), o, "x", fn, Options[string]{})
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = Fetch(context.Background(), o, "x", fn, Options[string]{})
	}()

	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil || results[i] != "shared" {
			t.Errorf("caller %d got %q, %v", i, results[i], errs[i])
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn called %d times, want 1", n)
	}

	got, err := Fetch(context.Background(), o, "x", fn, Options[string]{})
	if err != nil || got != "shared" {
		t.Fatalf("third Fetch() = %q, %v", got, err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("third call should be served from cache, fn called %d times", n)
	}
}

func TestFetch_DifferentKeysAreIndependent(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	f := &countingFn{value: "v"}

	for _, key := range []string{"a", "b", "c"} {
		if _, err := Fetch(context.Background(), o, key, f.fn, Options[string]{}); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("fn called %d times, want 3", n)
	}
}

func TestFetch_OfflineShortCircuits(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	o.SetOffline(true)
	f := &countingFn{value: "network"}

	got, err := Fetch(context.Background(), o, "k", f.fn, Options[string]{}.WithOfflineData("offline"))
	if err != nil || got != "offline" {
		t.Fatalf("Fetch() = %q, %v", got, err)
	}
	if f.calls.Load() != 0 {
		t.Error("fn must not be called while offline with offline data")
	}
}

func TestFetch_OfflineWithoutFallbackStillFetches(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	o.SetOffline(true)
	f := &countingFn{value: "network"}

	got, err := Fetch(context.Background(), o, "k", f.fn, Options[string]{})
	if err != nil || got != "network" {
		t.Fatalf("Fetch() = %q, %v", got, err)
	}
}

func TestFetch_ErrorFallsBackToOfflineData(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	boom := errors.New("boom")
	f := &countingFn{err: boom}

	var gotErr error
	var successCalled bool
	opts := Options[string]{
		OnError:   func(err error) { gotErr = err },
		OnSuccess: func(string) { successCalled = true },
	}.WithOfflineData("fallback")

	got, err := Fetch(context.Background(), o, "k", f.fn, opts)
	if err != nil || got != "fallback" {
		t.Fatalf("Fetch() = %q, %v", got, err)
	}
	if gotErr != boom {
		t.Errorf("OnError received %v, want the original error", gotErr)
	}
	if successCalled {
		t.Error("OnSuccess must not be called on failure")
	}
	if o.Cache().Len() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestFetch_ErrorPropagatesAndClearsPending(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	boom := errors.New("boom")
	f := &countingFn{err: boom}

	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), o, "k", f.fn, Options[string]{})
		if !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}
	if n := f.calls.Load(); n != 2 {
		t.Errorf("a settled failure must let the next call retry, fn called %d times", n)
	}
}

func TestFetch_OnSuccess(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	var seen string
	_, err := Fetch(context.Background(), o, "k", (&countingFn{value: "v"}).fn, Options[string]{
		OnSuccess: func(v string) { seen = v },
	})
	if err != nil || seen != "v" {
		t.Errorf("OnSuccess saw %q, err %v", seen, err)
	}
}

func TestFetch_ForceRefreshAndBypass(t *testing.T) {
	o := newOrchestrator(t, time.Second)
	ctx := context.Background()
	o.Cache().Set("k", "stale")

	fresh := &countingFn{value: "fresh"}
	got, err := Fetch(ctx, o, "k", fresh.fn, Options[string]{ForceRefresh: true})
	if err != nil || got != "fresh" {
		t.Fatalf("ForceRefresh Fetch() = %q, %v", got, err)
	}
	if v, _ := o.Cache().Get("k"); v != "fresh" {
		t.Errorf("ForceRefresh should write the cache, cached %v", v)
	}

	bypass := &countingFn{value: "bypassed"}
	got, err = Fetch(ctx, o, "k", bypass.fn, Options[string]{BypassCache: true})
	if err != nil || got != "bypassed" {
		t.Fatalf("BypassCache Fetch() = %q, %v", got, err)
	}
	if v, _ := o.Cache().Get("k"); v != "fresh" {
		t.Errorf("BypassCache must not write the cache, cached %v", v)
	}
}

func TestFetch_TimeoutClearsPending(t *testing.T) {
	o := newOrchestrator(t, 30*time.Millisecond)
	cancelled := make(chan error, 1)

	hung := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		cancelled <- ctx.Err()
		return "", ctx.Err()
	}

	var onErr error
	_, err := Fetch(context.Background(), o, "slow", hung, Options[string]{OnError: func(e error) { onErr = e }})
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("expected ErrFetchTimeout, got %v", err)
	}
	if !errors.Is(onErr, ErrFetchTimeout) {
		t.Errorf("OnError received %v", onErr)
	}

	select {
	case ctxErr := <-cancelled:
		if !errors.Is(ctxErr, context.DeadlineExceeded) {
			t.Errorf("fn context error = %v", ctxErr)
		}
	case <-time.After(time.Second):
		t.Fatal("fn context was never cancelled")
	}

	got, err := Fetch(context.Background(), o, "slow", (&countingFn{value: "ok"}).fn, Options[string]{})
	if err != nil || got != "ok" {
		t.Errorf("fetch after timeout = %q, %v", got, err)
	}
}

func TestFetch_LateTimeoutKeepsNewerCall(t *testing.T) {
	o := newOrchestrator(t, 200*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	var calls, inFlight, maxInFlight atomic.Int32
	blocked := func(context.Context) (string, error) {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		return "late", nil
	}

	// a starts call 1 and b joins it; c starts call 2 after a times out, and
	// b's later timeout must not drop call 2 before d joins it.
	starts := []time.Duration{0, 80 * time.Millisecond, 240 * time.Millisecond, 320 * time.Millisecond}
	var wg sync.WaitGroup
	for _, at := range starts {
		wg.Add(1)
		go func(at time.Duration) {
			defer wg.Done()
			time.Sleep(at)
			if _, err := Fetch(context.Background(), o, "k", blocked, Options[string]{}); !errors.Is(err, ErrFetchTimeout) {
				t.Errorf("Fetch() started at %s = %v, want ErrFetchTimeout", at, err)
			}
		}(at)
	}
	wg.Wait()

	if n := calls.Load(); n != 2 {
		t.Errorf("fn called %d times, want 2", n)
	}
	if n := maxInFlight.Load(); n != 2 {
		t.Errorf("max in-flight calls = %d, want 2", n)
	}
}

func TestFetch_AbandonedCallDoesNotOverwriteCache(t *testing.T) {
	o := newOrchestrator(t, 50*time.Millisecond)
	release := make(chan struct{})
	settled := make(chan struct{})

	_, err := Fetch(context.Background(), o, "k", func(context.Context) (string, error) {
		defer close(settled)
		<-release
		return "old", nil
	}, Options[string]{})
	if !errors.Is(err, ErrFetchTimeout) {
		t.Fatalf("expected ErrFetchTimeout, got %v", err)
	}

	got, err := Fetch(context.Background(), o, "k", (&countingFn{value: "new"}).fn, Options[string]{ForceRefresh: true})
	if err != nil || got != "new" {
		t.Fatalf("second fetch = %q, %v", got, err)
	}

	close(release)
	<-settled
	time.Sleep(20 * time.Millisecond)

	if v, ok := cache.GetAs[string](o.Cache(), "k"); !ok || v != "new" {
		t.Errorf("cache holds %q (hit=%v), want %q", v, ok, "new")
	}
}

func TestFetch_TimeoutWithOfflineData(t *testing.T) {
	o := newOrchestrator(t, 20*time.Millisecond)
	hung := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	got, err := Fetch(context.Background(), o, "slow", hung, Options[string]{}.WithOfflineData("cached"))
	if err != nil || got != "cached" {
		t.Errorf("Fetch() = %q, %v", got, err)
	}
}

func TestFetch_CallerCancellation(t *testing.T) {
	o := newOrchestrator(t, 0)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Fetch(ctx, o, "k", func(context.Context) (string, error) {
		<-release
		return "late", nil
	}, Options[string]{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected caller deadline, got %v", err)
	}
}

func TestSetOffline_Metric(t *testing.T) {
	o := newOrchestrator(t, time.Second)

	o.SetOffline(true)
	if !o.Offline() || testutil.ToFloat64(metrics.FetchOffline) != 1 {
		t.Error("expected offline")
	}
	o.SetOffline(false)
	if o.Offline() || testutil.ToFloat64(metrics.FetchOffline) != 0 {
		t.Error("expected online")
	}
}

func TestFollowBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := backend.New(backend.Config{
		BaseURL: server.URL,
		Breaker: backend.BreakerConfig{Name: "fetcher-follow", MinRequests: 2, FailureRatio: 0.5, Timeout: time.Hour},
	}, backend.StaticToken("t"))

	o := newOrchestrator(t, time.Second)
	o.FollowBackend(client)

	for i := 0; i < 2; i++ {
		_ = client.Get(context.Background(), "/leads", nil, nil)
	}
	if !o.Offline() {
		t.Fatal("an open circuit should mark the orchestrator offline")
	}

	got, err := Fetch(context.Background(), o, "k", (&countingFn{value: "net"}).fn, Options[string]{}.WithOfflineData("offline"))
	if err != nil || got != "offline" {
		t.Errorf("Fetch() = %q, %v", got, err)
	}
}
