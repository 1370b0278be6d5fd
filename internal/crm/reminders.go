// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package crm

import (
	"context"
	"net/http"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/models"
)

// Reminders wraps the /reminders endpoints. The backend scopes reminders to
// the user behind the bearer token.
type Reminders struct {
	c *backend.Client
}

func (s *Reminders) List(ctx context.Context, q models.ReminderQuery) (models.Page[models.Reminder], error) {
	if err := validate(q); err != nil {
		return models.Page[models.Reminder]{}, err
	}
	return backend.List[models.Reminder](ctx, s.c, "/reminders", q.Values())
}

func (s *Reminders) Get(ctx context.Context, id string) (models.Reminder, error) {
	if err := requireID("reminder id", id); err != nil {
		return models.Reminder{}, err
	}
	return backend.Fetch[models.Reminder](ctx, s.c, resourcePath("reminders", id), nil)
}

func (s *Reminders) Create(ctx context.Context, in models.ReminderInput) (models.Reminder, error) {
	if err := validate(in); err != nil {
		return models.Reminder{}, err
	}
	return backend.Mutate[models.Reminder](ctx, s.c, http.MethodPost, "/reminders", nil, in)
}

func (s *Reminders) Update(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error) {
	if err := requireID("reminder id", id); err != nil {
		return models.Reminder{}, err
	}
	if err := validate(in); err != nil {
		return models.Reminder{}, err
	}
	return backend.Mutate[models.Reminder](ctx, s.c, http.MethodPut, resourcePath("reminders", id), nil, in)
}

// ToggleComplete flips the completed flag and returns the stored reminder.
func (s *Reminders) ToggleComplete(ctx context.Context, id string) (models.Reminder, error) {
	if err := requireID("reminder id", id); err != nil {
		return models.Reminder{}, err
	}
	return backend.Mutate[models.Reminder](ctx, s.c, http.MethodPatch, resourcePath("reminders", id, "toggle"), nil, nil)
}

func (s *Reminders) Delete(ctx context.Context, id string) error {
	if err := requireID("reminder id", id); err != nil {
		return err
	}
	_, err := backend.Mutate[ack](ctx, s.c, http.MethodDelete, resourcePath("reminders", id), nil, nil)
	return err
}
