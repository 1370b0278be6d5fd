// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package dashboard is the view-model the UI binds to.
//
// Reads go through the fetch orchestrator, so they are cached, coalesced and
// fall back to the last good snapshot while the backend is unreachable.
// Mutations are role-checked, sent through the CRM façade and then announced
// on the notifier, which invalidates the affected cache prefixes and tells
// other processes to refresh. Refresh events for the signed-in user reload
// the snapshot with ForceRefresh.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/leaddesk/internal/authz"
	"github.com/tomtom215/leaddesk/internal/crm"
	"github.com/tomtom215/leaddesk/internal/fetcher"
	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/models"
	"github.com/tomtom215/leaddesk/internal/notify"
	"github.com/tomtom215/leaddesk/internal/optimistic"
	"github.com/tomtom215/leaddesk/internal/session"
)

// Identity resolves the signed-in user. *session.Manager satisfies it.
type Identity interface {
	Current(ctx context.Context) (session.Identity, error)
}

// Deps are the collaborators of a Dashboard. Enforcer and Listener may be
// nil; without an Enforcer every role may mutate.
type Deps struct {
	Loader   *fetcher.Loader
	API      *crm.API
	Notifier *notify.Notifier
	Listener *notify.Listener
	Enforcer *authz.Enforcer
	Session  Identity
}

// Snapshot is everything one dashboard view shows.
type Snapshot struct {
	Leads       fetcher.LeadPage
	Employees   fetcher.UserPage
	Reminders   fetcher.ReminderPage
	Performance []models.Performance
	LoadedAt    time.Time
}

// Dashboard holds the current snapshot and the mutation entry points.
type Dashboard struct {
	deps      Deps
	reminders *optimistic.State[[]models.Reminder]

	mu      sync.RWMutex
	last    Snapshot
	hasLast bool

	unsubscribe func()
}

// New creates a Dashboard and, when a listener is supplied, subscribes it to
// refresh events for the current user.
func New(deps Deps) *Dashboard {
	d := &Dashboard{
		deps:      deps,
		reminders: optimistic.NewState[[]models.Reminder](nil),
	}
	if deps.Listener != nil {
		d.unsubscribe = deps.Listener.OnRefresh(d.onRefresh)
	}
	return d
}

// Close detaches from the listener.
func (d *Dashboard) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}

// Reminders exposes the reminder list state for observers.
func (d *Dashboard) Reminders() *optimistic.State[[]models.Reminder] { return d.reminders }

// Snapshot returns the last loaded snapshot.
func (d *Dashboard) Snapshot() (Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last, d.hasLast
}

func (d *Dashboard) onRefresh(ctx context.Context, e notify.Event) {
	if _, err := d.RefreshAll(ctx, true); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(e.Kind)).Msg("dashboard refresh failed")
	}
}

// RefreshAll loads the snapshot for the signed-in user's role. Employees see
// their own leads, managers the leads assigned to them plus the employee
// list and performance report, admins every lead.
func (d *Dashboard) RefreshAll(ctx context.Context, force bool) (Snapshot, error) {
	who, err := d.deps.Session.Current(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	prev, hasPrev := d.Snapshot()
	snap := Snapshot{LoadedAt: time.Now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		opts := options(force, hasPrev, prev.Leads)
		var err error
		switch who.Role {
		case models.RoleEmployee:
			snap.Leads, err = d.deps.Loader.FetchEmployeeLeads(gctx, who.UserID, models.LeadQuery{}, opts)
		case models.RoleManager:
			snap.Leads, err = d.deps.Loader.FetchAssignedLeads(gctx, who.UserID, models.LeadQuery{}, opts)
		default:
			snap.Leads, err = d.deps.Loader.FetchLeads(gctx, models.LeadQuery{}, opts)
		}
		return err
	})
	g.Go(func() error {
		var err error
		snap.Reminders, err = d.deps.Loader.FetchReminders(gctx, who.UserID, models.ReminderQuery{}, options(force, hasPrev, prev.Reminders))
		return err
	})
	if who.Role != models.RoleEmployee {
		g.Go(func() error {
			var err error
			snap.Employees, err = d.deps.Loader.FetchEmployees(gctx, options(force, hasPrev, prev.Employees))
			return err
		})
		g.Go(func() error {
			var err error
			snap.Performance, err = d.deps.Loader.FetchPerformance(gctx, models.ReportQuery{}, options(force, hasPrev, prev.Performance))
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("refresh dashboard: %w", err)
	}

	d.mu.Lock()
	d.last, d.hasLast = snap, true
	d.mu.Unlock()
	d.reminders.Set(snap.Reminders.Items)
	return snap, nil
}

func options[T any](force, hasPrev bool, prev T) fetcher.Options[T] {
	opts := fetcher.Options[T]{ForceRefresh: force}
	if hasPrev {
		opts = opts.WithOfflineData(prev)
	}
	return opts
}

// authorize checks the signed-in role against obj/act.
func (d *Dashboard) authorize(ctx context.Context, obj, act string) error {
	who, err := d.deps.Session.Current(ctx)
	if err != nil {
		return err
	}
	if d.deps.Enforcer == nil {
		return nil
	}
	return d.deps.Enforcer.Authorize(who.Role, obj, act)
}

// ToggleReminder flips a reminder's completion immediately and confirms it
// with the backend, rolling the flip back if the backend refuses.
func (d *Dashboard) ToggleReminder(ctx context.Context, id string) (models.Reminder, error) {
	if err := d.authorize(ctx, authz.ObjReminders, authz.ActUpdate); err != nil {
		return models.Reminder{}, err
	}

	flip := func(list []models.Reminder) []models.Reminder {
		out := make([]models.Reminder, len(list))
		copy(out, list)
		for i := range out {
			if out[i].ID == id {
				out[i].Completed = !out[i].Completed
			}
		}
		return out
	}

	updated, err := optimistic.Run(ctx, d.reminders, optimistic.Transition[[]models.Reminder, models.Reminder]{
		Name:    "toggle-reminder",
		Forward: flip,
		Inverse: flip,
		Commit: func(ctx context.Context) (models.Reminder, error) {
			return d.deps.API.Reminders.ToggleComplete(ctx, id)
		},
		Reconcile: func(list []models.Reminder, server models.Reminder) []models.Reminder {
			out := make([]models.Reminder, len(list))
			copy(out, list)
			for i := range out {
				if out[i].ID == server.ID {
					out[i] = server
				}
			}
			return out
		},
	})
	if err != nil {
		return models.Reminder{}, err
	}

	d.deps.Notifier.NotifyTaskChanged(ctx, updated)
	return updated, nil
}

// AssignLead assigns a lead to an employee.
func (d *Dashboard) AssignLead(ctx context.Context, leadID, employeeID string) (models.Lead, error) {
	if err := d.authorize(ctx, authz.ObjLeadAssign, authz.ActUpdate); err != nil {
		return models.Lead{}, err
	}
	lead, err := d.deps.API.Leads.AssignToEmployee(ctx, leadID, employeeID)
	if err != nil {
		return models.Lead{}, err
	}
	d.deps.Notifier.NotifyLeadAssigned(ctx, lead)
	return lead, nil
}

// AssignLeadToManager hands a lead to a manager.
func (d *Dashboard) AssignLeadToManager(ctx context.Context, leadID, managerID string) (models.Lead, error) {
	if err := d.authorize(ctx, authz.ObjLeadAssignManager, authz.ActUpdate); err != nil {
		return models.Lead{}, err
	}
	lead, err := d.deps.API.Leads.AssignToManager(ctx, leadID, managerID)
	if err != nil {
		return models.Lead{}, err
	}
	d.deps.Notifier.NotifyLeadAssigned(ctx, lead)
	return lead, nil
}

// UpdateLeadStatus moves a lead through the pipeline.
func (d *Dashboard) UpdateLeadStatus(ctx context.Context, lead models.Lead, status models.LeadStatus) (models.Lead, error) {
	if err := d.authorize(ctx, authz.ObjLeads, authz.ActUpdate); err != nil {
		return models.Lead{}, err
	}
	in := inputFrom(lead)
	in.Status = status

	updated, err := d.deps.API.Leads.Update(ctx, lead.ID, in)
	if err != nil {
		return models.Lead{}, err
	}
	d.deps.Notifier.NotifyLeadStatusChanged(ctx, updated, lead.Status)
	return updated, nil
}

// UpdateLead saves edited lead fields.
func (d *Dashboard) UpdateLead(ctx context.Context, id string, in models.LeadInput) (models.Lead, error) {
	if err := d.authorize(ctx, authz.ObjLeads, authz.ActUpdate); err != nil {
		return models.Lead{}, err
	}
	updated, err := d.deps.API.Leads.Update(ctx, id, in)
	if err != nil {
		return models.Lead{}, err
	}
	d.deps.Notifier.NotifyLeadUpdated(ctx, updated)
	return updated, nil
}

// SaveFollowUp sets or clears (nil) a lead's follow-up date.
func (d *Dashboard) SaveFollowUp(ctx context.Context, lead models.Lead, at *time.Time) (models.Lead, error) {
	if err := d.authorize(ctx, authz.ObjLeads, authz.ActUpdate); err != nil {
		return models.Lead{}, err
	}
	in := inputFrom(lead)
	in.FollowUpDate = at

	updated, err := d.deps.API.Leads.Update(ctx, lead.ID, in)
	if err != nil {
		return models.Lead{}, err
	}
	d.deps.Notifier.NotifyFollowUpChanged(ctx, updated)
	return updated, nil
}

// SaveTask creates a reminder when id is empty and updates it otherwise.
func (d *Dashboard) SaveTask(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error) {
	act := authz.ActUpdate
	if id == "" {
		act = authz.ActCreate
	}
	if err := d.authorize(ctx, authz.ObjReminders, act); err != nil {
		return models.Reminder{}, err
	}

	var (
		task models.Reminder
		err  error
	)
	if id == "" {
		task, err = d.deps.API.Reminders.Create(ctx, in)
	} else {
		task, err = d.deps.API.Reminders.Update(ctx, id, in)
	}
	if err != nil {
		return models.Reminder{}, err
	}
	d.deps.Notifier.NotifyTaskChanged(ctx, task)
	return task, nil
}

// IsForbidden reports whether err is a role rejection.
func IsForbidden(err error) bool { return errors.Is(err, authz.ErrForbidden) }

func inputFrom(l models.Lead) models.LeadInput {
	return models.LeadInput{
		Name:         l.Name,
		Email:        l.Email,
		Phone:        l.Phone,
		Company:      l.Company,
		Source:       l.Source,
		Status:       l.Status,
		Value:        l.Value,
		Notes:        l.Notes,
		FollowUpDate: l.FollowUpDate,
	}
}
