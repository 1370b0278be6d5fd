// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

//go:build !nats

package notify

import (
	"context"
	"errors"
)

// errNATSUnavailable is returned by the NATS transport in builds without it.
var errNATSUnavailable = errors.New("NATS broadcast transport not available: build with -tags=nats")

// NATSChannel is a stub when NATS dependencies are not compiled in.
type NATSChannel struct {
	server *EmbeddedServer
}

// NewNATSChannel returns an error when NATS dependencies are not available.
func NewNATSChannel(context.Context, string, string) (*NATSChannel, error) {
	return nil, errNATSUnavailable
}

func (c *NATSChannel) Put(context.Context, Kind, []byte) error { return errNATSUnavailable }

func (c *NATSChannel) Get(context.Context, Kind) ([]byte, bool, error) {
	return nil, false, errNATSUnavailable
}

func (c *NATSChannel) Delete(context.Context, Kind) error { return errNATSUnavailable }

func (c *NATSChannel) Watch(context.Context) (<-chan Change, error) {
	return nil, errNATSUnavailable
}

func (c *NATSChannel) Close() error { return nil }
