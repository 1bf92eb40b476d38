package models

import (
	"encoding/json"
	"time"
)

// Client event names accepted on the realtime channel.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
)

// Server event names emitted on the realtime channel.
const (
	EventReceiveMessage = "receiveMessage"
	EventMessageError   = "messageError"
	EventMessageDeleted = "messageDeleted"
)

// ClientEvent is the inbound envelope read from a websocket connection.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the outbound envelope written to subscribed connections.
type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// JoinRoomPayload carries the room id a connection wants to subscribe to.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload is the client request to persist and broadcast a message.
type SendMessagePayload struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId"`
	Type     string `json:"type"`
	Text     string `json:"text"`
}

// ReceiveMessagePayload is broadcast to every subscriber of the room after a
// message was persisted.
type ReceiveMessagePayload struct {
	ID        string    `json:"_id"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageErrorPayload is sent to the originating connection only.
type MessageErrorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageDeletedPayload notifies room subscribers that a message was removed.
type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}
