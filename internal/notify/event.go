// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

/*
Package notify broadcasts dashboard domain events between processes and
invalidates the cache entries they make stale.

Events are pulses: the Notifier writes an event under its kind key on a shared
Channel and deletes the key again after a short delay, so a channel holds at
most one pending event per kind. Listeners that are running at that moment
see it; listeners started later never do.

Channel implementations:

	MemoryChannel  in-process, Watermill GoChannel fan-out (tests, single process)
	NATSChannel    JetStream KeyValue bucket shared by every process (-tags=nats)

Listeners combine a Watch subscription with polling of every kind key, and
deduplicate what they see by event id and timestamp. Malformed payloads are
logged and skipped.
*/
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/leaddesk/internal/models"
)

// ErrMalformedEvent is returned when a broadcast payload cannot be decoded.
var ErrMalformedEvent = errors.New("malformed broadcast event")

// Kind tags an Event and is also its key on the channel.
type Kind string

const (
	KindLeadAssigned      Kind = "lead_assigned"
	KindLeadUpdated       Kind = "lead_updated"
	KindLeadStatusChanged Kind = "lead_status_changed"
	KindFollowUpChanged   Kind = "followup_changed"
	KindTaskChanged       Kind = "task_changed"
)

// Kinds lists every event kind in channel polling order.
var Kinds = []Kind{
	KindLeadAssigned,
	KindLeadUpdated,
	KindLeadStatusChanged,
	KindFollowUpChanged,
	KindTaskChanged,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one broadcast. Kind selects which payload fields are meaningful:
//
//	lead_assigned        LeadID, LeadName, EmployeeID, ManagerID
//	lead_updated         LeadID, LeadName, EmployeeID
//	lead_status_changed  LeadID, LeadName, EmployeeID, Status, PreviousStatus
//	followup_changed     LeadID, EmployeeID, FollowUpDate
//	task_changed         TaskID, LeadID, EmployeeID, Completed
type Event struct {
	Kind      Kind   `json:"kind"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds

	LeadID     string `json:"leadId,omitempty"`
	LeadName   string `json:"leadName,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	ManagerID  string `json:"managerId,omitempty"`

	Status         models.LeadStatus `json:"status,omitempty"`
	PreviousStatus models.LeadStatus `json:"previousStatus,omitempty"`
	FollowUpDate   *time.Time        `json:"followUpDate,omitempty"`

	TaskID    string `json:"taskId,omitempty"`
	Completed *bool  `json:"completed,omitempty"`
}

// Time returns the event timestamp.
func (e Event) Time() time.Time { return time.UnixMilli(e.Timestamp) }

func newEvent(kind Kind, now time.Time) Event {
	return Event{Kind: kind, ID: uuid.NewString(), Timestamp: now.UnixMilli()}
}

// Encode serializes e for the channel.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a payload read from the channel under key kind.
func Decode(kind Kind, data []byte) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, kind)
	}
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %s: %w", ErrMalformedEvent, kind, err)
	}
	if e.Kind == "" {
		e.Kind = kind
	}
	if e.Kind != kind {
		return Event{}, fmt.Errorf("%w: kind %q stored under %q", ErrMalformedEvent, e.Kind, kind)
	}
	if e.Timestamp <= 0 {
		return Event{}, fmt.Errorf("%w: %s: missing timestamp", ErrMalformedEvent, kind)
	}
	switch kind {
	case KindTaskChanged:
		if e.TaskID == "" {
			return Event{}, fmt.Errorf("%w: %s: missing taskId", ErrMalformedEvent, kind)
		}
	default:
		if e.LeadID == "" {
			return Event{}, fmt.Errorf("%w: %s: missing leadId", ErrMalformedEvent, kind)
		}
	}
	return e, nil
}

// dedupKey identifies an event across watch and poll deliveries.
func (e Event) dedupKey() string {
	return fmt.Sprintf("%d/%s", e.Timestamp, e.ID)
}
