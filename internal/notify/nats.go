// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

//go:build nats

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/leaddesk/internal/logging"
)

// NATSChannel stores the kind keys in a JetStream KeyValue bucket, so every
// process connected to the same NATS server shares one broadcast channel.
type NATSChannel struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	server *EmbeddedServer
}

// NewNATSChannel connects to url and opens (or creates) the bucket. Values
// expire after a minute in case a pulse deletion never arrives.
func NewNATSChannel(ctx context.Context, url, bucket string) (*NATSChannel, error) {
	nc, err := nats.Connect(url,
		nats.Name("leaddesk-broadcast"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS broadcast connection lost")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS broadcast connection restored")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "LeadDesk dashboard broadcast pulses",
		History:     1,
		TTL:         time.Minute,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open key-value bucket %q: %w", bucket, err)
	}

	return &NATSChannel{nc: nc, kv: kv}, nil
}

func (c *NATSChannel) Put(ctx context.Context, kind Kind, value []byte) error {
	_, err := c.kv.Put(ctx, string(kind), value)
	return err
}

func (c *NATSChannel) Get(ctx context.Context, kind Kind) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, string(kind))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (c *NATSChannel) Delete(ctx context.Context, kind Kind) error {
	err := c.kv.Delete(ctx, string(kind))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Watch streams updates made after the call. The initial-values marker (a
// nil entry) is skipped.
func (c *NATSChannel) Watch(ctx context.Context) (<-chan Change, error) {
	w, err := c.kv.WatchAll(ctx, jetstream.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("watch bucket: %w", err)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-w.Updates():
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				change := Change{
					Kind:    Kind(entry.Key()),
					Value:   entry.Value(),
					Deleted: entry.Operation() != jetstream.KeyValuePut,
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close drains the connection and stops the embedded server, if any.
func (c *NATSChannel) Close() error {
	err := c.nc.Drain()
	if c.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := c.server.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
