// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

/*
Package crm is the typed façade over the CRM REST backend.

Each resource has its own service (Leads, Users, Reminders, Reports) whose
methods validate their input, call the backend client and unwrap the response
envelopes:

	list responses     {data: {data: [...], count, pagination}}
	mutation responses {data: {success: bool, data: {...}, message}}

A mutation envelope with success=false surfaces as backend.ErrUnsuccessful.
Methods that address a single resource return ErrMissingIdentifier when the
id is empty, before any request is made.
*/
package crm

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/leaddesk/internal/backend"
	"github.com/tomtom215/leaddesk/internal/validation"
)

// ErrMissingIdentifier is returned when a required id argument is empty.
var ErrMissingIdentifier = errors.New("missing required identifier")

// API groups the resource services.
type API struct {
	Leads     *Leads
	Users     *Users
	Reminders *Reminders
	Reports   *Reports
}

// New builds the façade on top of a backend client.
func New(c *backend.Client) *API {
	return &API{
		Leads:     &Leads{c: c},
		Users:     &Users{c: c},
		Reminders: &Reminders{c: c},
		Reports:   &Reports{c: c},
	}
}

// ack is the payload of mutations whose data the caller does not need.
type ack = json.RawMessage

func requireID(name, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s", ErrMissingIdentifier, name)
	}
	return nil
}

func resourcePath(parts ...string) string {
	p := ""
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func validate(v any) error {
	return validation.Struct(v)
}
