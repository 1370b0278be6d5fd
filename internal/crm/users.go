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

// Users wraps the /users endpoints.
type Users struct {
	c *backend.Client
}

func (s *Users) List(ctx context.Context) (models.Page[models.User], error) {
	return backend.List[models.User](ctx, s.c, "/users", nil)
}

// ListWithRoles returns users annotated with their manager and lead count.
func (s *Users) ListWithRoles(ctx context.Context) (models.Page[models.UserWithRole], error) {
	return backend.List[models.UserWithRole](ctx, s.c, "/users/roles", nil)
}

func (s *Users) ListByRole(ctx context.Context, role models.Role) (models.Page[models.User], error) {
	if err := requireID("role", string(role)); err != nil {
		return models.Page[models.User]{}, err
	}
	if err := validate(models.RoleUpdate{Role: role}); err != nil {
		return models.Page[models.User]{}, err
	}
	return backend.List[models.User](ctx, s.c, resourcePath("users", "role", string(role)), nil)
}

func (s *Users) Get(ctx context.Context, id string) (models.User, error) {
	if err := requireID("user id", id); err != nil {
		return models.User{}, err
	}
	return backend.Fetch[models.User](ctx, s.c, resourcePath("users", id), nil)
}

func (s *Users) Create(ctx context.Context, in models.UserInput) (models.User, error) {
	if err := validate(in); err != nil {
		return models.User{}, err
	}
	return backend.Mutate[models.User](ctx, s.c, http.MethodPost, "/users", nil, in)
}

func (s *Users) Update(ctx context.Context, id string, in models.UserInput) (models.User, error) {
	if err := requireID("user id", id); err != nil {
		return models.User{}, err
	}
	if err := validate(in); err != nil {
		return models.User{}, err
	}
	return backend.Mutate[models.User](ctx, s.c, http.MethodPut, resourcePath("users", id), nil, in)
}

// UpdateRole changes only the role of a user.
func (s *Users) UpdateRole(ctx context.Context, id string, role models.Role) (models.User, error) {
	if err := requireID("user id", id); err != nil {
		return models.User{}, err
	}
	body := models.RoleUpdate{Role: role}
	if err := validate(body); err != nil {
		return models.User{}, err
	}
	return backend.Mutate[models.User](ctx, s.c, http.MethodPut, resourcePath("users", id, "role"), nil, body)
}

func (s *Users) Delete(ctx context.Context, id string) error {
	if err := requireID("user id", id); err != nil {
		return err
	}
	_, err := backend.Mutate[ack](ctx, s.c, http.MethodDelete, resourcePath("users", id), nil, nil)
	return err
}
