package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxEventBytes bounds a single inbound event. Sized so a 5 MiB image still
// fits after base64 expansion plus the envelope.
const maxEventBytes = 8 << 20

type eventHandler func(ctx context.Context, c *client, data json.RawMessage)

// ChannelHandler upgrades websocket connections and dispatches client events
// by name.
type ChannelHandler struct {
	hub         *Hub
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	dispatch    map[string]eventHandler
}

// NewChannelHandler constructs a ChannelHandler with its dispatch table.
func NewChannelHandler(hub *Hub, userRepo repositories.UserRepository, messageRepo repositories.MessageRepository) *ChannelHandler {
	h := &ChannelHandler{
		hub:         hub,
		userRepo:    userRepo,
		messageRepo: messageRepo,
	}
	h.dispatch = map[string]eventHandler{
		models.EventJoinRoom:    h.handleJoinRoom,
		models.EventSendMessage: h.handleSendMessage,
	}
	return h
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts the per-connection read loop.
func (h *ChannelHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chatroom-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxEventBytes)

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	cl := h.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   connEventPayload("ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(cl)
}

// readLoop decodes inbound events and feeds them through the dispatch table.
// Handler logic for one connection runs to completion before the next event
// is read, so events on a single connection are processed in receipt order.
func (h *ChannelHandler) readLoop(cl *client) {
	info := cl.info
	var closeReason string
	defer func() {
		h.hub.Unregister(cl)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   connEventPayload("ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		cl.conn.Close()
	}()

	ctx := context.Background()
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.hub.sendError(cl, "Invalid event format", err.Error())
			continue
		}

		handler, ok := h.dispatch[event.Event]
		if !ok {
			h.hub.sendError(cl, "Unknown event: "+event.Event, "")
			continue
		}

		observability.IncWSEvent(event.Event)
		handler(ctx, cl, event.Data)
	}
}

// handleJoinRoom subscribes the connection to a room. The payload is either a
// bare JSON string or an object with a roomId field. No acknowledgment is
// sent and no membership check is made.
func (h *ChannelHandler) handleJoinRoom(ctx context.Context, cl *client, data json.RawMessage) {
	roomID := ""
	if err := json.Unmarshal(data, &roomID); err != nil {
		var payload models.JoinRoomPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			h.hub.sendError(cl, "Invalid joinRoom payload", err.Error())
			return
		}
		roomID = payload.RoomID
	}

	if roomID == "" {
		h.hub.sendError(cl, "Missing required fields", "")
		return
	}

	h.hub.JoinRoom(cl, roomID)
}

// handleSendMessage validates, persists and broadcasts a message. Every
// failure emits a messageError to the originating connection only.
func (h *ChannelHandler) handleSendMessage(ctx context.Context, cl *client, data json.RawMessage) {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.hub.sendError(cl, "Invalid message payload", err.Error())
		return
	}

	if err := validation.ValidateSendMessage(payload); err != nil {
		h.hub.sendError(cl, err.Error(), "")
		return
	}

	roomID, err := primitive.ObjectIDFromHex(payload.RoomID)
	if err != nil {
		h.hub.sendError(cl, "Invalid room or sender id", err.Error())
		return
	}
	senderID, err := primitive.ObjectIDFromHex(payload.SenderID)
	if err != nil {
		h.hub.sendError(cl, "Invalid room or sender id", err.Error())
		return
	}

	msg, err := h.messageRepo.CreateMessage(ctx, roomID, senderID, payload.Type, payload.Text)
	if err != nil {
		h.hub.sendError(cl, "Failed to save message", err.Error())
		return
	}

	sender, err := h.userRepo.GetUserByID(ctx, senderID)
	if err != nil {
		h.hub.sendError(cl, "Failed to save message", err.Error())
		return
	}

	h.hub.BroadcastMessage(payload.RoomID, models.ReceiveMessagePayload{
		ID:        msg.ID.Hex(),
		RoomID:    payload.RoomID,
		Sender:    sender.Username,
		SenderID:  sender.ID.Hex(),
		Text:      msg.Content,
		Type:      msg.Type,
		Timestamp: msg.Timestamp,
	})
}

func connEventPayload(event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
