// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/leaddesk/internal/logging"
)

const (
	memoryTopic = "leaddesk.broadcast"

	metaKind = "kind"
	metaOp   = "op"
	opPut    = "put"
	opDelete = "delete"
)

// ErrChannelClosed is returned by operations on a closed MemoryChannel.
var ErrChannelClosed = errors.New("broadcast channel closed")

// MemoryChannel keeps the kind keys in a map and fans changes out to watchers
// through a Watermill GoChannel.
type MemoryChannel struct {
	mu     sync.RWMutex
	values map[Kind][]byte
	closed bool

	pubsub *gochannel.GoChannel
}

// NewMemoryChannel creates an empty in-process channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		values: make(map[Kind][]byte),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewSlogLogger(logging.NewSlogLogger()),
		),
	}
}

func (c *MemoryChannel) Put(_ context.Context, kind Kind, value []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.values[kind] = append([]byte(nil), value...)
	c.mu.Unlock()
	return c.publish(kind, opPut, value)
}

func (c *MemoryChannel) Get(_ context.Context, kind Kind) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrChannelClosed
	}
	v, ok := c.values[kind]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *MemoryChannel) Delete(_ context.Context, kind Kind) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	_, existed := c.values[kind]
	delete(c.values, kind)
	c.mu.Unlock()
	if !existed {
		return nil
	}
	return c.publish(kind, opDelete, nil)
}

func (c *MemoryChannel) publish(kind Kind, op string, value []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), value)
	msg.Metadata.Set(metaKind, string(kind))
	msg.Metadata.Set(metaOp, op)
	return c.pubsub.Publish(memoryTopic, msg)
}

// Watch subscribes to changes. The returned channel closes when ctx ends or
// the MemoryChannel is closed.
func (c *MemoryChannel) Watch(ctx context.Context) (<-chan Change, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrChannelClosed
	}

	msgs, err := c.pubsub.Subscribe(ctx, memoryTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			change := Change{
				Kind:    Kind(msg.Metadata.Get(metaKind)),
				Value:   msg.Payload,
				Deleted: msg.Metadata.Get(metaOp) == opDelete,
			}
			msg.Ack()
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops every watcher.
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.pubsub.Close()
}
