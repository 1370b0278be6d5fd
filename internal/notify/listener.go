// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/metrics"
	"github.com/tomtom215/leaddesk/internal/models"
)

// DefaultPollInterval is how often a Listener reads every kind key.
const DefaultPollInterval = 2 * time.Second

// Delivery sources recorded in leaddesk_broadcasts_received_total.
const (
	sourceWatch = "watch"
	sourcePoll  = "poll"
)

// Handler receives decoded events.
type Handler func(ctx context.Context, e Event)

// Toast is a user-visible notification raised for high-signal events.
type Toast struct {
	Level   string `json:"level"` // "success", "warning", "info"
	Title   string `json:"title"`
	Message string `json:"message"`
	LeadID  string `json:"leadId,omitempty"`
}

// Toaster displays toasts to the current user.
type Toaster interface {
	Toast(ctx context.Context, t Toast)
}

// ListenerConfig tunes a Listener.
type ListenerConfig struct {
	PollInterval time.Duration
	// CurrentUser returns the id of the signed-in user; events about other
	// employees are not passed to refresh handlers.
	CurrentUser func() string
	Toaster     Toaster
}

// Listener reads events from a Channel and dispatches them.
type Listener struct {
	ch  Channel
	cfg ListenerConfig

	mu          sync.RWMutex
	subscribers map[uint64]Handler
	refreshers  map[uint64]Handler
	nextID      uint64

	seenMu sync.Mutex
	seen   map[Kind]string
}

// NewListener creates a Listener on ch. Run it with Serve.
func NewListener(ch Channel, cfg ListenerConfig) *Listener {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Listener{
		ch:          ch,
		cfg:         cfg,
		subscribers: make(map[uint64]Handler),
		refreshers:  make(map[uint64]Handler),
		seen:        make(map[Kind]string),
	}
}

// Subscribe registers h for every event. The returned function removes it.
func (l *Listener) Subscribe(h Handler) (unsubscribe func()) {
	return l.add(l.subscribers, h)
}

// OnRefresh registers h for events concerning the current user. Handlers
// re-fetch their views with ForceRefresh.
func (l *Listener) OnRefresh(h Handler) (unsubscribe func()) {
	return l.add(l.refreshers, h)
}

func (l *Listener) add(set map[uint64]Handler, h Handler) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	set[id] = h
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(set, id)
			l.mu.Unlock()
		})
	}
}

// Serve watches the channel and polls it until ctx ends.
func (l *Listener) Serve(ctx context.Context) error {
	changes, err := l.ch.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch broadcast channel: %w", err)
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("broadcast watch ended")
			}
			if change.Deleted {
				continue
			}
			l.handle(ctx, change.Kind, change.Value, sourceWatch)
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *Listener) poll(ctx context.Context) {
	for _, kind := range Kinds {
		value, ok, err := l.ch.Get(ctx, kind)
		if err != nil {
			if ctx.Err() == nil {
				logging.Debug().Err(err).Str("kind", string(kind)).Msg("Broadcast poll failed")
			}
			continue
		}
		if ok {
			l.handle(ctx, kind, value, sourcePoll)
		}
	}
}

func (l *Listener) handle(ctx context.Context, kind Kind, value []byte, source string) {
	e, err := Decode(kind, value)
	if err != nil {
		metrics.BroadcastsMalformed.Inc()
		logging.Warn().Err(err).Str("kind", string(kind)).Str("source", source).Msg("Skipping malformed broadcast event")
		return
	}

	l.seenMu.Lock()
	if l.seen[kind] == e.dedupKey() {
		l.seenMu.Unlock()
		return
	}
	l.seen[kind] = e.dedupKey()
	l.seenMu.Unlock()

	metrics.RecordBroadcastReceived(string(kind), source)
	l.dispatch(ctx, e)
}

func (l *Listener) dispatch(ctx context.Context, e Event) {
	l.mu.RLock()
	subscribers := make([]Handler, 0, len(l.subscribers))
	for _, h := range l.subscribers {
		subscribers = append(subscribers, h)
	}
	refreshers := make([]Handler, 0, len(l.refreshers))
	for _, h := range l.refreshers {
		refreshers = append(refreshers, h)
	}
	l.mu.RUnlock()

	for _, h := range subscribers {
		l.safeCall(ctx, h, e)
	}

	if !l.concernsCurrentUser(e) {
		return
	}
	for _, h := range refreshers {
		l.safeCall(ctx, h, e)
	}
	if t, ok := toastFor(e); ok && l.cfg.Toaster != nil {
		l.cfg.Toaster.Toast(ctx, t)
	}
}

// concernsCurrentUser matches the event's employee, or for assignments the
// manager the lead was handed to.
func (l *Listener) concernsCurrentUser(e Event) bool {
	if l.cfg.CurrentUser == nil {
		return false
	}
	user := l.cfg.CurrentUser()
	if user == "" {
		return false
	}
	return e.EmployeeID == user || (e.Kind == KindLeadAssigned && e.ManagerID == user)
}

// safeCall keeps a panicking handler from stopping the listener.
func (l *Listener) safeCall(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("kind", string(e.Kind)).Msg("Broadcast handler panicked")
		}
	}()
	h(ctx, e)
}

func toastFor(e Event) (Toast, bool) {
	name := e.LeadName
	if name == "" {
		name = e.LeadID
	}
	switch {
	case e.Kind == KindLeadStatusChanged && e.Status == models.LeadStatusConverted:
		return Toast{Level: "success", Title: "Lead converted", Message: name + " was converted", LeadID: e.LeadID}, true
	case e.Kind == KindLeadStatusChanged && e.Status == models.LeadStatusLost:
		return Toast{Level: "warning", Title: "Lead lost", Message: name + " was marked as lost", LeadID: e.LeadID}, true
	case e.Kind == KindLeadAssigned:
		return Toast{Level: "info", Title: "New lead assigned", Message: name + " was assigned to you", LeadID: e.LeadID}, true
	default:
		return Toast{}, false
	}
}
