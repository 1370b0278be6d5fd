// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

// Package models defines the CRM resources exchanged with the backend and the
// response envelopes the backend wraps them in.
package models

// Pagination is the paging block attached to list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is the normalised result of a list call.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
}

// ListEnvelope is the backend's list response shape:
//
//	{"data": {"data": [...], "count": 12, "pagination": {...}}}
type ListEnvelope[T any] struct {
	Data struct {
		Data       []T        `json:"data"`
		Count      int        `json:"count"`
		Pagination Pagination `json:"pagination"`
	} `json:"data"`
}

// Page unwraps the envelope.
func (e *ListEnvelope[T]) Page() Page[T] {
	items := e.Data.Data
	if items == nil {
		items = []T{}
	}
	count := e.Data.Count
	if count == 0 {
		count = len(items)
	}
	return Page[T]{Items: items, Count: count, Pagination: e.Data.Pagination}
}

// MutationEnvelope is the backend's mutation response shape:
//
//	{"data": {"success": true, "data": {...}, "message": "..."}}
type MutationEnvelope[T any] struct {
	Data struct {
		Success bool   `json:"success"`
		Data    T      `json:"data"`
		Message string `json:"message,omitempty"`
	} `json:"data"`
}

// ErrorBody is what the backend sends with non-2xx responses.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
