// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package crm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/models"
)

// Leads wraps the /leads endpoints.
type Leads struct {
	c *backend.Client
}

// List returns the leads visible to the caller.
func (s *Leads) List(ctx context.Context, q models.LeadQuery) (models.Page[models.Lead], error) {
	if err := validate(q); err != nil {
		return models.Page[models.Lead]{}, err
	}
	return backend.List[models.Lead](ctx, s.c, "/leads", q.Values())
}

// Get returns one lead.
func (s *Leads) Get(ctx context.Context, id string) (models.Lead, error) {
	if err := requireID("lead id", id); err != nil {
		return models.Lead{}, err
	}
	return backend.Fetch[models.Lead](ctx, s.c, resourcePath("leads", id), nil)
}

// Create adds a lead.
func (s *Leads) Create(ctx context.Context, in models.LeadInput) (models.Lead, error) {
	if err := validate(in); err != nil {
		return models.Lead{}, err
	}
	return backend.Mutate[models.Lead](ctx, s.c, http.MethodPost, "/leads", nil, in)
}

// Update replaces the editable fields of a lead.
func (s *Leads) Update(ctx context.Context, id string, in models.LeadInput) (models.Lead, error) {
	if err := requireID("lead id", id); err != nil {
		return models.Lead{}, err
	}
	if err := validate(in); err != nil {
		return models.Lead{}, err
	}
	return backend.Mutate[models.Lead](ctx, s.c, http.MethodPut, resourcePath("leads", id), nil, in)
}

// Delete removes a lead.
func (s *Leads) Delete(ctx context.Context, id string) error {
	if err := requireID("lead id", id); err != nil {
		return err
	}
	_, err := backend.Mutate[ack](ctx, s.c, http.MethodDelete, resourcePath("leads", id), nil, nil)
	return err
}

// AssignToEmployee hands a lead to an employee with a single PUT.
func (s *Leads) AssignToEmployee(ctx context.Context, leadID, employeeID string) (models.Lead, error) {
	if err := requireID("lead id", leadID); err != nil {
		return models.Lead{}, err
	}
	if err := requireID("employee id", employeeID); err != nil {
		return models.Lead{}, err
	}
	return backend.Mutate[models.Lead](ctx, s.c, http.MethodPut,
		resourcePath("leads", leadID, "assign"), nil, models.AssignRequest{EmployeeID: employeeID})
}

// AssignToManager hands a lead to a manager.
func (s *Leads) AssignToManager(ctx context.Context, leadID, managerID string) (models.Lead, error) {
	if err := requireID("lead id", leadID); err != nil {
		return models.Lead{}, err
	}
	if err := requireID("manager id", managerID); err != nil {
		return models.Lead{}, err
	}
	return backend.Mutate[models.Lead](ctx, s.c, http.MethodPut,
		resourcePath("leads", leadID, "assign-manager"), nil, models.AssignRequest{ManagerID: managerID})
}

// ListByEmployee returns the leads assigned to one employee.
func (s *Leads) ListByEmployee(ctx context.Context, employeeID string, q models.LeadQuery) (models.Page[models.Lead], error) {
	if err := requireID("employee id", employeeID); err != nil {
		return models.Page[models.Lead]{}, err
	}
	if err := validate(q); err != nil {
		return models.Page[models.Lead]{}, err
	}
	return backend.List[models.Lead](ctx, s.c, resourcePath("leads", "employee", employeeID), q.Values())
}

// ListAssigned returns the leads a manager has been given. An empty managerID
// lets the backend resolve the manager from the bearer token.
func (s *Leads) ListAssigned(ctx context.Context, managerID string, q models.LeadQuery) (models.Page[models.Lead], error) {
	if err := validate(q); err != nil {
		return models.Page[models.Lead]{}, err
	}
	values := q.Values()
	if managerID != "" {
		if values == nil {
			values = url.Values{}
		}
		values.Set("managerId", managerID)
	}
	return backend.List[models.Lead](ctx, s.c, "/leads/assigned", values)
}
