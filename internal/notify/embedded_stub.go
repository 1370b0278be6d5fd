// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

//go:build !nats

package notify

import "context"

// EmbeddedServer is a stub when NATS dependencies are not available.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error when NATS dependencies are not available.
func NewEmbeddedServer(EmbeddedConfig) (*EmbeddedServer, error) {
	return nil, errNATSUnavailable
}

// ClientURL returns an empty URL for the stub.
func (s *EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(context.Context) error { return nil }

// IsRunning always returns false for the stub.
func (s *EmbeddedServer) IsRunning() bool { return false }
