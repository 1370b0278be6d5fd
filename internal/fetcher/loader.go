// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package fetcher

import (
	"context"

	"github.com/tomtom215/leaddesk/internal/cache"
	"github.com/tomtom215/leaddesk/internal/crm"
	"github.com/tomtom215/leaddesk/internal/models"
)

// Cache key prefixes. The notifier invalidates by these prefixes, so they are
// part of the contract between the two packages.
const (
	PrefixLeadsAll      = "leads:all"
	PrefixLeadsStatus   = "leads:status"
	PrefixLeadsEmployee = "leads:employee"
	PrefixLeadsAssigned = "leads:assigned"
	PrefixUsersRole     = "users:role"
	PrefixReminders     = "reminders"
	PrefixPerformance   = "reports:performance"
)

// Loader binds the orchestrator to the CRM façade.
type Loader struct {
	o   *Orchestrator
	api *crm.API
}

// NewLoader creates a Loader.
func NewLoader(o *Orchestrator, api *crm.API) *Loader {
	return &Loader{o: o, api: api}
}

// Orchestrator returns the underlying orchestrator.
func (l *Loader) Orchestrator() *Orchestrator { return l.o }

// LeadsKey is the cache key of a lead list query. Status-filtered queries
// live under leads:status so status changes can invalidate them alone.
func LeadsKey(q models.LeadQuery) string {
	if q.Status != "" {
		return cache.Key(cache.Join(PrefixLeadsStatus, string(q.Status)), q)
	}
	return cache.Key(PrefixLeadsAll, q)
}

// EmployeeLeadsKey is the cache key of an employee's own lead list.
func EmployeeLeadsKey(employeeID string, q models.LeadQuery) string {
	return cache.Key(cache.Join(PrefixLeadsEmployee, employeeID), q)
}

// AssignedLeadsKey is the cache key of the leads handed to a manager.
func AssignedLeadsKey(managerID string, q models.LeadQuery) string {
	return cache.Key(cache.Join(PrefixLeadsAssigned, managerID), q)
}

// UsersByRoleKey is the cache key of the user list for role.
func UsersByRoleKey(role models.Role) string {
	return cache.Join(PrefixUsersRole, string(role))
}

// RemindersKey is the cache key of a user's reminder list query.
func RemindersKey(userID string, q models.ReminderQuery) string {
	return cache.Key(cache.Join(PrefixReminders, userID), q)
}

// PerformanceKey is the cache key of a performance report query.
func PerformanceKey(q models.ReportQuery) string {
	return cache.Key(PrefixPerformance, q)
}

// LeadPage and friends name the cached value types.
type (
	LeadPage     = models.Page[models.Lead]
	UserPage     = models.Page[models.User]
	ReminderPage = models.Page[models.Reminder]
)

// FetchLeads loads every lead matching q.
func (l *Loader) FetchLeads(ctx context.Context, q models.LeadQuery, opts Options[LeadPage]) (LeadPage, error) {
	return Fetch(ctx, l.o, LeadsKey(q), func(ctx context.Context) (LeadPage, error) {
		return l.api.Leads.List(ctx, q)
	}, opts)
}

// FetchEmployeeLeads loads the leads assigned to employeeID.
func (l *Loader) FetchEmployeeLeads(ctx context.Context, employeeID string, q models.LeadQuery, opts Options[LeadPage]) (LeadPage, error) {
	return Fetch(ctx, l.o, EmployeeLeadsKey(employeeID, q), func(ctx context.Context) (LeadPage, error) {
		return l.api.Leads.ListByEmployee(ctx, employeeID, q)
	}, opts)
}

// FetchAssignedLeads loads the leads a manager has been handed.
func (l *Loader) FetchAssignedLeads(ctx context.Context, managerID string, q models.LeadQuery, opts Options[LeadPage]) (LeadPage, error) {
	return Fetch(ctx, l.o, AssignedLeadsKey(managerID, q), func(ctx context.Context) (LeadPage, error) {
		return l.api.Leads.ListAssigned(ctx, managerID, q)
	}, opts)
}

// FetchUsersByRole loads the users holding role.
func (l *Loader) FetchUsersByRole(ctx context.Context, role models.Role, opts Options[UserPage]) (UserPage, error) {
	return Fetch(ctx, l.o, UsersByRoleKey(role), func(ctx context.Context) (UserPage, error) {
		return l.api.Users.ListByRole(ctx, role)
	}, opts)
}

// FetchEmployees is FetchUsersByRole for the employee role.
func (l *Loader) FetchEmployees(ctx context.Context, opts Options[UserPage]) (UserPage, error) {
	return l.FetchUsersByRole(ctx, models.RoleEmployee, opts)
}

// FetchReminders caches per user since the backend scopes reminders to the
// token's owner.
func (l *Loader) FetchReminders(ctx context.Context, userID string, q models.ReminderQuery, opts Options[ReminderPage]) (ReminderPage, error) {
	return Fetch(ctx, l.o, RemindersKey(userID, q), func(ctx context.Context) (ReminderPage, error) {
		return l.api.Reminders.List(ctx, q)
	}, opts)
}

// FetchPerformance loads the per-employee performance report.
func (l *Loader) FetchPerformance(ctx context.Context, q models.ReportQuery, opts Options[[]models.Performance]) ([]models.Performance, error) {
	return Fetch(ctx, l.o, PerformanceKey(q), func(ctx context.Context) ([]models.Performance, error) {
		return l.api.Reports.Performance(ctx, q)
	}, opts)
}
