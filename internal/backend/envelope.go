// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tomtom215/leaddesk/internal/models"
)

// List performs a GET against a list endpoint and unwraps
// {data: {data: [...], count, pagination}}.
func List[T any](ctx context.Context, c *Client, path string, query url.Values) (models.Page[T], error) {
	var env models.ListEnvelope[T]
	if err := c.Get(ctx, path, query, &env); err != nil {
		return models.Page[T]{}, err
	}
	return env.Page(), nil
}

// Fetch performs a GET against a single-resource endpoint. The backend wraps
// single resources like mutations: {data: {success, data: {...}}}.
func Fetch[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return Mutate[T](ctx, c, http.MethodGet, path, query, nil)
}

// Mutate sends body with the given method and unwraps
// {data: {success, data: {...}}}. success=false yields an *UnsuccessfulError
// matching ErrUnsuccessful.
func Mutate[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var zero T
	var env models.MutationEnvelope[T]
	if err := c.Do(ctx, method, path, query, body, &env); err != nil {
		return zero, err
	}
	if !env.Data.Success {
		return zero, &UnsuccessfulError{Message: env.Data.Message}
	}
	return env.Data.Data, nil
}
