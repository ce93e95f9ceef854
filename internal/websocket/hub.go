// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package websocket pushes plan and settings changes to connected clients.
//
// The Hub implements planner.Notifier. Each broadcast is encoded once and
// fanned out to every client in connection order; a client whose send
// buffer is full is dropped rather than allowed to stall the others.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/metrics"
)

// Message types.
const (
	MessageTypePlanUpdated     = "plan_updated"
	MessageTypePlanConsumed    = "plan_consumed"
	MessageTypeSettingsUpdated = "settings_updated"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

const broadcastBuffer = 256

// Message is the frame sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type frame struct {
	messageType string
	payload     []byte
}

// Hub tracks connected clients and broadcasts messages to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan frame
}

// NewHub creates a hub. Serve must be running for broadcasts to be delivered.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan frame, broadcastBuffer),
	}
}

// Serve delivers broadcasts until ctx is done, then disconnects every
// client. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// Shutdown wins over pending broadcasts.
		select {
		case <-ctx.Done():
			closed := h.closeAll()
			logging.Info().
				Str("component", "websocket-hub").
				Int("clients_closed", closed).
				Msg("WebSocket hub stopped")
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			continue
		case f := <-h.broadcast:
			h.deliver(f)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

// Broadcast queues a message for every client. Messages are dropped with a
// warning when the queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("Failed to encode WebSocket message")
		metrics.WSErrors.WithLabelValues("encode").Inc()
		return
	}
	select {
	case h.broadcast <- frame{messageType: messageType, payload: payload}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast queue full, dropping message")
		metrics.WSErrors.WithLabelValues("queue_full").Inc()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("WebSocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.closeSend()
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(n))
		logging.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("WebSocket client disconnected")
	}
}

// sortedClients must be called with h.mu held.
func (h *Hub) sortedClients() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (h *Hub) deliver(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for _, c := range h.sortedClients() {
		select {
		case c.send <- f.payload:
			sent++
		default:
			delete(h.clients, c)
			c.closeSend()
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
		}
	}
	metrics.WSMessagesSent.WithLabelValues(f.messageType).Add(float64(sent))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()
	for _, c := range clients {
		delete(h.clients, c)
		c.closeSend()
	}
	metrics.WSConnections.Set(0)
	return len(clients)
}
