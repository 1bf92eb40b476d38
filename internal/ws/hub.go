package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
)

// client pairs a websocket connection with its metadata and a write lock,
// since gorilla connections do not allow concurrent writers.
type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

func (c *client) writeEvent(event models.ServerEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

// Hub owns the per-room subscriber registry. Room subscriptions are
// per-connection and do not survive reconnects; a reconnecting client must
// re-issue joinRoom.
type Hub struct {
	rooms       map[string]map[*client]bool
	clientRooms map[*client]map[string]bool
	mu          sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*client]bool),
		clientRooms: make(map[*client]map[string]bool),
	}
}

// Register tracks a new connection. It joins no rooms until joinRoom events
// arrive.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) *client {
	c := &client{conn: conn, info: info}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientRooms[c] = make(map[string]bool)
	return c
}

// Unregister removes a connection from every room it joined.
func (h *Hub) Unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.clientRooms[c] {
		h.removeFromRoomLocked(c, roomID)
	}
	delete(h.clientRooms, c)
}

// JoinRoom subscribes a connection to all future broadcasts for the room.
// No membership check is made here; any connection may join any room id.
func (h *Hub) JoinRoom(c *client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*client]bool)
	}
	h.rooms[roomID][c] = true
	if _, ok := h.clientRooms[c]; !ok {
		h.clientRooms[c] = make(map[string]bool)
	}
	h.clientRooms[c][roomID] = true
}

func (h *Hub) removeFromRoomLocked(c *client, roomID string) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastMessage sends a receiveMessage event to every subscriber of the
// room, including the sender's connection.
func (h *Hub) BroadcastMessage(roomID string, payload models.ReceiveMessagePayload) {
	h.broadcast(roomID, models.ServerEvent{Event: models.EventReceiveMessage, Data: payload})
	observability.IncWSBroadcast(models.EventReceiveMessage)
}

// BroadcastDeletion sends a messageDeleted event to current room subscribers.
func (h *Hub) BroadcastDeletion(roomID, messageID string) {
	h.broadcast(roomID, models.ServerEvent{Event: models.EventMessageDeleted, Data: models.MessageDeletedPayload{
		MessageID: messageID,
		RoomID:    roomID,
	}})
	observability.IncWSBroadcast(models.EventMessageDeleted)
}

func (h *Hub) broadcast(roomID string, event models.ServerEvent) {
	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.writeEvent(event); err != nil {
			log.Printf("websocket write error: %v", err)
			c.conn.Close()
			h.Unregister(c)
			h.publishWSError(roomID, c, err)
		}
	}
}

// sendError emits a messageError event to a single connection.
func (h *Hub) sendError(c *client, errMsg, details string) {
	event := models.ServerEvent{Event: models.EventMessageError, Data: models.MessageErrorPayload{
		Error:   errMsg,
		Details: details,
	}}
	if err := c.writeEvent(event); err != nil {
		log.Printf("websocket write error: %v", err)
		c.conn.Close()
		h.Unregister(c)
	}
}

// RoomSubscribers reports the current subscriber count for a room.
func (h *Hub) RoomSubscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) publishWSError(roomID string, c *client, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       "ws_error",
			"conn_id":     c.info.ConnID,
			"duration_ms": time.Since(c.info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"device_id": c.info.DeviceID,
			"ip":        c.info.IP,
		},
	}

	headers := observability.BuildHeaders(c.info.RequestID, c.info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
