// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/metrics"
	"github.com/tomtom215/leaddesk/internal/models"
)

// DefaultPulseDelay is how long an event stays on the channel.
const DefaultPulseDelay = time.Second

// Cache prefixes invalidated by each event kind.
var invalidations = map[Kind][]string{
	KindLeadAssigned:      {"leads:employee", "leads:status", "leads:assigned"},
	KindLeadUpdated:       {"leads:"},
	KindLeadStatusChanged: {"leads:status", "leads:employee", "reports:"},
	KindFollowUpChanged:   {"leads:employee", "reminders:"},
	KindTaskChanged:       {"reminders:"},
}

// Prefixes returns the cache prefixes an event of kind invalidates.
func Prefixes(kind Kind) []string {
	return append([]string(nil), invalidations[kind]...)
}

// NotifierConfig tunes a Notifier.
type NotifierConfig struct {
	PulseDelay time.Duration
	Clock      func() time.Time
}

// Notifier invalidates local cache entries and broadcasts domain events.
// Channel failures are logged, never returned: a lost pulse only delays
// other dashboards until their next refresh.
type Notifier struct {
	cache *cache.Manager
	ch    Channel
	delay time.Duration
	now   func() time.Time

	mu      sync.Mutex
	pending map[Kind]pulse
	gen     uint64
	closed  bool
}

type pulse struct {
	timer *time.Timer
	gen   uint64
}

// NewNotifier creates a Notifier. c may be nil when the process keeps no
// cache of its own.
func NewNotifier(c *cache.Manager, ch Channel, cfg NotifierConfig) *Notifier {
	if cfg.PulseDelay <= 0 {
		cfg.PulseDelay = DefaultPulseDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Notifier{
		cache:   c,
		ch:      ch,
		delay:   cfg.PulseDelay,
		now:     cfg.Clock,
		pending: make(map[Kind]pulse),
	}
}

// NotifyLeadAssigned announces that lead was given to lead.AssignedTo.
func (n *Notifier) NotifyLeadAssigned(ctx context.Context, lead models.Lead) {
	e := newEvent(KindLeadAssigned, n.now())
	e.LeadID = lead.ID
	e.LeadName = lead.Name
	e.EmployeeID = lead.AssignedTo
	e.ManagerID = lead.AssignedManager
	n.publish(ctx, e)
}

// NotifyLeadUpdated announces edited lead fields.
func (n *Notifier) NotifyLeadUpdated(ctx context.Context, lead models.Lead) {
	e := newEvent(KindLeadUpdated, n.now())
	e.LeadID = lead.ID
	e.LeadName = lead.Name
	e.EmployeeID = lead.AssignedTo
	n.publish(ctx, e)
}

// NotifyLeadStatusChanged announces lead's move from previous to lead.Status.
func (n *Notifier) NotifyLeadStatusChanged(ctx context.Context, lead models.Lead, previous models.LeadStatus) {
	e := newEvent(KindLeadStatusChanged, n.now())
	e.LeadID = lead.ID
	e.LeadName = lead.Name
	e.EmployeeID = lead.AssignedTo
	e.Status = lead.Status
	e.PreviousStatus = previous
	n.publish(ctx, e)
}

// NotifyFollowUpChanged announces a set or cleared follow-up date.
func (n *Notifier) NotifyFollowUpChanged(ctx context.Context, lead models.Lead) {
	e := newEvent(KindFollowUpChanged, n.now())
	e.LeadID = lead.ID
	e.LeadName = lead.Name
	e.EmployeeID = lead.AssignedTo
	e.FollowUpDate = lead.FollowUpDate
	n.publish(ctx, e)
}

// NotifyTaskChanged announces a created, edited or toggled reminder.
func (n *Notifier) NotifyTaskChanged(ctx context.Context, task models.Reminder) {
	e := newEvent(KindTaskChanged, n.now())
	e.TaskID = task.ID
	e.LeadID = task.LeadID
	e.EmployeeID = task.UserID
	completed := task.Completed
	e.Completed = &completed
	n.publish(ctx, e)
}

func (n *Notifier) publish(ctx context.Context, e Event) {
	log := logging.Ctx(ctx).With().Str("kind", string(e.Kind)).Str("lead_id", e.LeadID).Logger()

	if n.cache != nil {
		removed := 0
		for _, prefix := range invalidations[e.Kind] {
			removed += n.cache.Clear(prefix)
		}
		log.Debug().Int("removed", removed).Msg("Invalidated cache entries")
	}

	payload, err := e.Encode()
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode broadcast event")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	if err := n.ch.Put(ctx, e.Kind, payload); err != nil {
		log.Warn().Err(err).Msg("Failed to write broadcast event")
		return
	}
	metrics.RecordBroadcastPublished(string(e.Kind))

	// A newer pulse of the same kind restarts the removal delay.
	if p, ok := n.pending[e.Kind]; ok {
		p.timer.Stop()
	}
	n.gen++
	kind, gen := e.Kind, n.gen
	n.pending[kind] = pulse{gen: gen, timer: time.AfterFunc(n.delay, func() { n.expire(kind, gen) })}
}

func (n *Notifier) expire(kind Kind, gen uint64) {
	n.mu.Lock()
	if p, ok := n.pending[kind]; !ok || p.gen != gen || n.closed {
		n.mu.Unlock()
		return
	}
	delete(n.pending, kind)
	n.mu.Unlock()
	n.remove(kind)
}

func (n *Notifier) remove(kind Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.ch.Delete(ctx, kind); err != nil {
		logging.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to remove broadcast event")
	}
}

// Close removes pulses still on the channel. Later notifications only
// invalidate the cache.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	kinds := make([]Kind, 0, len(n.pending))
	for kind, p := range n.pending {
		p.timer.Stop()
		kinds = append(kinds, kind)
	}
	n.pending = map[Kind]pulse{}
	n.mu.Unlock()

	for _, kind := range kinds {
		n.remove(kind)
	}
}
