// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

/*
Package websocket pushes dashboard notifications to connected UI clients.

The Hub fans out typed messages to every registered Client. It implements
notify.Toaster, so the broadcast listener can raise toasts directly, and its
Refresh method is a notify.Handler that tells views to reload after a
cross-tab change:

	hub := websocket.NewHub()
	listener := notify.NewListener(ch, notify.ListenerConfig{Toaster: hub})
	listener.OnRefresh(hub.Refresh)
	router.Get("/ws", hub.ServeWS)

Each client runs a read pump (answers pings, enforces the pong deadline) and
a write pump (serialises messages, sends keepalive pings).
*/
package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/leaddesk/internal/logging"
	"github.com/tomtom215/leaddesk/internal/metrics"
	"github.com/tomtom215/leaddesk/internal/notify"
)

// ShutdownReason explains why RunWithContext returned.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types understood by the dashboard UI.
const (
	MessageTypeToast   = "toast"
	MessageTypeRefresh = "refresh"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// Message is the JSON frame written to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RefreshData tells a view which change made its data stale.
type RefreshData struct {
	Kind      notify.Kind `json:"kind"`
	LeadID    string      `json:"leadId,omitempty"`
	TaskID    string      `json:"taskId,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub tracks clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call RunWithContext to start delivering messages.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes registrations and broadcasts until ctx is done,
// then closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Inc()
			logging.Debug().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Serve adapts the hub to a supervised service.
func (h *Hub) Serve(ctx context.Context) error {
	err := h.RunWithContext(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
		logging.Debug().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}

	close(h.done)

	h.mu.Lock()
	closed := len(h.clients)
	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	metrics.WSConnections.Sub(float64(closed))

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// sortedClients returns clients in registration order. Caller holds mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// broadcastToClients drops clients whose send buffer is full.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	var dropped int
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			close(client.send)
			delete(h.clients, client)
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		metrics.WSConnections.Sub(float64(dropped))
		logging.Warn().Int("dropped", dropped).Msg("dropped slow websocket clients")
	}
}

// Broadcast queues a message for every client. It never blocks; a full
// queue drops the message.
func (h *Hub) Broadcast(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// Toast implements notify.Toaster.
func (h *Hub) Toast(ctx context.Context, t notify.Toast) {
	logging.Ctx(ctx).Debug().Str("level", t.Level).Str("title", t.Title).Msg("pushing toast")
	h.Broadcast(MessageTypeToast, t)
}

// Refresh is a notify.Handler that asks open views to reload.
func (h *Hub) Refresh(_ context.Context, e notify.Event) {
	h.Broadcast(MessageTypeRefresh, RefreshData{
		Kind:      e.Kind,
		LeadID:    e.LeadID,
		TaskID:    e.TaskID,
		Timestamp: e.Timestamp,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage encodes msg the way clients receive it.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
