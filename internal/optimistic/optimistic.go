// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package optimistic applies view-state changes before the backend confirms
// them.
//
// A Transition has two phases. Forward is applied to the State immediately
// and observers see it; then Commit runs against the backend. On success the
// optional Reconcile folds the backend's answer into the state. On failure
// Inverse is applied to whatever the state is at that moment, so unrelated
// transitions that landed in between are kept.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/leaddesk/internal/logging"
)

// ErrRolledBack wraps the commit error of a reverted transition.
var ErrRolledBack = errors.New("optimistic update rolled back")

// Phase is the lifecycle stage reported to observers.
type Phase int

const (
	PhaseApplied Phase = iota
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseApplied:
		return "applied"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Observer is called after every state change.
type Observer[T any] func(value T, phase Phase, transition string)

// State is a value guarded for concurrent transitions.
type State[T any] struct {
	mu        sync.Mutex
	value     T
	observers map[int]Observer[T]
	nextID    int
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial, observers: make(map[int]Observer[T])}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value, e.g. after a fresh fetch.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

// Observe registers fn and returns a function removing it.
func (s *State[T]) Observe(fn Observer[T]) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *State[T]) update(fn func(T) T, phase Phase, name string) {
	s.mu.Lock()
	s.value = fn(s.value)
	v := s.value
	observers := make([]Observer[T], 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(v, phase, name)
	}
}

// Transition describes one optimistic change committed with result type R.
type Transition[T, R any] struct {
	Name      string
	Forward   func(T) T
	Inverse   func(T) T
	Commit    func(ctx context.Context) (R, error)
	Reconcile func(T, R) T
}

// Run applies tr.Forward, commits, and either reconciles or rolls back.
func Run[T, R any](ctx context.Context, s *State[T], tr Transition[T, R]) (R, error) {
	var zero R
	if tr.Forward == nil || tr.Inverse == nil || tr.Commit == nil {
		return zero, fmt.Errorf("transition %q needs Forward, Inverse and Commit", tr.Name)
	}

	s.update(tr.Forward, PhaseApplied, tr.Name)

	result, err := tr.Commit(ctx)
	if err != nil {
		s.update(tr.Inverse, PhaseRolledBack, tr.Name)
		logging.Ctx(ctx).Warn().Err(err).Str("transition", tr.Name).Msg("Optimistic update rolled back")
		return zero, fmt.Errorf("%w: %s: %w", ErrRolledBack, tr.Name, err)
	}

	reconcile := func(v T) T { return v }
	if tr.Reconcile != nil {
		reconcile = func(v T) T { return tr.Reconcile(v, result) }
	}
	s.update(reconcile, PhaseCommitted, tr.Name)
	return result, nil
}
