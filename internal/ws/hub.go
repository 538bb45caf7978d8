package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/observability"
)

// Hub maintains active websocket rooms. Rooms are addressed by the canonical
// pair key, so both participants of a conversation always land in the same
// room no matter who joined first.
type Hub struct {
	rooms      map[string]map[*Client]bool
	membership map[*Client]map[string]bool
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		membership: make(map[*Client]map[string]bool),
	}
}

// Join subscribes a client to a room.
func (h *Hub) Join(roomKey string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomKey]; !ok {
		h.rooms[roomKey] = make(map[*Client]bool)
	}
	h.rooms[roomKey][client] = true
	if _, ok := h.membership[client]; !ok {
		h.membership[client] = make(map[string]bool)
	}
	h.membership[client][roomKey] = true
}

// Leave drops the client from every room it joined. Called on disconnect;
// there is no explicit leave-room event.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomKey := range h.membership[client] {
		h.removeLocked(roomKey, client)
	}
	delete(h.membership, client)
}

func (h *Hub) removeLocked(roomKey string, client *Client) {
	if members, ok := h.rooms[roomKey]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomKey)
		}
	}
}

// RoomSize reports how many clients are subscribed to a room.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// BroadcastMessage delivers a new-message event to every room member that is
// not the sender, and a message-sent ack to the sender's own connection when
// one is attached. Exclusion is by user id, not connection, so a sender's
// other devices are skipped too, and the REST send path behaves the same as
// the websocket one.
func (h *Hub) BroadcastMessage(roomKey string, msg models.Message, sender *Client) {
	event := models.ServerEvent{Type: models.EventNewMessage, Message: &msg}
	h.broadcast(roomKey, event, msg.SenderID)

	if sender != nil {
		ack := models.ServerEvent{Type: models.EventMessageSent, Message: &msg}
		if err := sender.WriteEvent(ack); err != nil {
			h.dropBroken(roomKey, sender, err)
		}
	}
}

// BroadcastTyping relays a typing indicator to everyone but its author.
// Typing events are never persisted.
func (h *Hub) BroadcastTyping(roomKey, userID string, isTyping bool) {
	now := time.Now()
	event := models.ServerEvent{
		Type:      models.EventUserTyping,
		UserID:    userID,
		IsTyping:  isTyping,
		Timestamp: &now,
	}
	h.broadcast(roomKey, event, userID)
}

func (h *Hub) broadcast(roomKey string, event models.ServerEvent, excludeUserID string) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomKey]))
	for client := range h.rooms[roomKey] {
		if client.Info.UserID != excludeUserID {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.WriteEvent(event); err != nil {
			h.dropBroken(roomKey, client, err)
		}
	}
}

func (h *Hub) dropBroken(roomKey string, client *Client, err error) {
	log.Printf("websocket write error: %v", err)
	client.Close()

	h.mu.Lock()
	h.removeLocked(roomKey, client)
	delete(h.membership[client], roomKey)
	h.mu.Unlock()

	h.publishWSError(roomKey, client, err)
}

func (h *Hub) publishWSError(roomKey string, client *Client, err error) {
	info := client.Info
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room":        roomKey,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
