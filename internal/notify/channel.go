// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package notify

import (
	"context"
	"fmt"
)

// Change is one mutation observed on a Channel.
type Change struct {
	Kind    Kind
	Value   []byte
	Deleted bool
}

// Channel is the shared key-value broadcast medium. Each kind key holds at
// most one value; Put overwrites it.
type Channel interface {
	Put(ctx context.Context, kind Kind, value []byte) error
	// Get returns the current value of kind, ok=false when absent.
	Get(ctx context.Context, kind Kind) (value []byte, ok bool, err error)
	Delete(ctx context.Context, kind Kind) error
	// Watch streams changes made after the call until ctx ends.
	Watch(ctx context.Context) (<-chan Change, error)
	Close() error
}

// ChannelConfig selects and configures a Channel.
type ChannelConfig struct {
	Transport string // "memory" or "nats"
	Bucket    string

	NATSURL  string
	Embedded *EmbeddedConfig
}

// OpenChannel builds the configured transport. For NATS with an embedded
// server, the server is started first and shut down by the channel's Close.
func OpenChannel(ctx context.Context, cfg ChannelConfig) (Channel, error) {
	switch cfg.Transport {
	case "", "memory":
		return NewMemoryChannel(), nil
	case "nats":
		url := cfg.NATSURL
		var srv *EmbeddedServer
		if cfg.Embedded != nil {
			var err error
			if srv, err = NewEmbeddedServer(*cfg.Embedded); err != nil {
				return nil, err
			}
			url = srv.ClientURL()
		}
		ch, err := NewNATSChannel(ctx, url, cfg.Bucket)
		if err != nil {
			if srv != nil {
				_ = srv.Shutdown(ctx)
			}
			return nil, err
		}
		ch.server = srv
		return ch, nil
	default:
		return nil, fmt.Errorf("unknown broadcast transport %q", cfg.Transport)
	}
}

// EmbeddedConfig configures the in-process NATS server.
type EmbeddedConfig struct {
	Host     string
	Port     int
	StoreDir string
}
