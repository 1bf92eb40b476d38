package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message belongs to exactly one room and one sender. Content holds raw text
// or a base64-encoded image data URL depending on Type. Messages are never
// mutated after creation.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ChatRoomID primitive.ObjectID `bson:"chatRoomId" json:"chatRoomId"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	Type       string             `bson:"type" json:"type"`
	Content    string             `bson:"content" json:"content"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// MessageView is a message with the sender username resolved for display.
type MessageView struct {
	Message `bson:",inline"`
	Sender  string `bson:"-" json:"sender"`
}
