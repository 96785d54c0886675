// Package ws implements the realtime change-notification channel. After each
// successful insert the HTTP handlers hand the new row to the Hub, which
// fans it out to connected clients entitled to see it: direct messages go to
// sender and recipient, group traffic to current group members. The server
// only ever relays ciphertext; decryption happens on the receiving client.
package ws

import (
	"context"
	"encoding/json"

	"cipherchat/internal/api"
	"cipherchat/internal/logging"
)

// Membership answers whether a user currently belongs to a group. Backed by
// the groups service.
type Membership interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type Hub struct {
	// Registered connections.
	clients map[*Client]bool

	// Register requests from new connections.
	register chan *Client

	// Unregister requests from closing connections.
	unregister chan *Client

	// Outbound events awaiting fan-out.
	events chan *api.Event

	members Membership
	logger  logging.Logger
}

func NewHub(members Membership, logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *api.Event, 64),
		members:    members,
		logger:     logger.With("module", "ws_hub"),
	}
}

// Run owns the client set. It exits when ctx is cancelled, closing every
// remaining connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case event := <-h.events:
			h.dispatch(ctx, event)

		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Broadcast queues an event for fan-out. Safe to call from any goroutine.
func (h *Hub) Broadcast(event *api.Event) {
	h.events <- event
}

func (h *Hub) dispatch(ctx context.Context, event *api.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error(ctx, "error marshalling event", "error", err)
		return
	}

	for client := range h.clients {
		ok, err := h.entitled(ctx, event, client.userID)
		if err != nil {
			h.logger.Error(ctx, "error checking entitlement", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the connection rather than block the hub.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// entitled applies the per-table visibility filter: recipient/sender equality
// for direct messages, current membership for group tables. A removed member
// stops receiving group events immediately, even though historical ciphertext
// they already hold stays decryptable to them.
func (h *Hub) entitled(ctx context.Context, event *api.Event, userID string) (bool, error) {
	switch event.Table {
	case api.TableDirectMessages:
		m := event.DirectMessage
		return m != nil && (m.RecipientID == userID || m.SenderID == userID), nil

	case api.TableGroupMessages:
		if event.GroupMessage == nil {
			return false, nil
		}
		return h.members.IsMember(ctx, event.GroupMessage.GroupID, userID)

	case api.TableGroupMembers:
		gm := event.GroupMember
		if gm == nil {
			return false, nil
		}
		// The affected user always hears about their own membership change.
		if gm.UserID == userID {
			return true, nil
		}
		return h.members.IsMember(ctx, gm.GroupID, userID)
	}
	return false, nil
}
