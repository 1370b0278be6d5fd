// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTree_Defaults(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}
}

func TestTree_RunsEveryLayer(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	var started atomic.Int32
	running := func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}
	tree.AddData(NewService("data", running))
	tree.AddMessaging(NewService("messaging", running))
	tree.AddAPI(NewService("api", running))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for started.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d services started", started.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestService_RestartsOnFailure(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{FailureThreshold: 10, FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	var runs atomic.Int32
	tree.AddMessaging(NewService("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("watch ended")
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("service ran %d times, want 3", runs.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh
}

func TestService_CleanStopIsNotRestarted(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	var runs atomic.Int32
	tree.AddData(NewService("one-shot", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-errCh

	if runs.Load() != 1 {
		t.Errorf("one-shot service ran %d times", runs.Load())
	}
}

func TestNewCloser_ReleasesOnShutdown(t *testing.T) {
	var closed atomic.Bool
	svc := NewCloser("session-store", func() error {
		closed.Store(true)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if closed.Load() {
		t.Fatal("resource released before shutdown")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if !closed.Load() {
		t.Error("resource not released")
	}
	if s, ok := svc.(interface{ String() string }); !ok || s.String() != "session-store" {
		t.Error("service should carry its name")
	}
}
