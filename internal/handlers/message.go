package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

var startTime = time.Now()

// MessageHandler manages message history and deletion endpoints.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, userRepo: userRepo, hub: hub, audit: audit}
}

// ListMessages returns room history in ascending timestamp order, capped at
// 100 results, with sender usernames resolved.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	roomID, err := primitive.ObjectIDFromHex(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	views, err := h.resolveSenders(c, msgs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, views)
}

// GetMessage fetches a single message by id.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch message"})
		return
	}

	views, err := h.resolveSenders(c, []models.Message{msg})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch message"})
		return
	}

	c.JSON(http.StatusOK, views[0])
}

// DeleteMessage removes a message by id and broadcasts a messageDeleted event
// to current subscribers of its room.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messageRepo.DeleteMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		return
	}

	h.hub.BroadcastDeletion(msg.ChatRoomID.Hex(), msg.ID.Hex())

	senderID := msg.SenderID.Hex()
	h.audit.Emit(c.Request.Context(), "INFO", "message deleted", requestIDFromContext(c), &senderID)

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// ListImages returns image messages for a room in descending timestamp order.
func (h *MessageHandler) ListImages(c *gin.Context) {
	roomID, err := primitive.ObjectIDFromHex(c.Param("chatRoomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	images, err := h.messageRepo.ListRoomImages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, images)
}

// Health reports liveness and process uptime.
func (h *MessageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(startTime).Seconds(),
	})
}

// resolveSenders attaches sender usernames to messages for display.
func (h *MessageHandler) resolveSenders(c *gin.Context, msgs []models.Message) ([]models.MessageView, error) {
	senderIDs := make([]primitive.ObjectID, 0, len(msgs))
	seen := map[primitive.ObjectID]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	names := map[primitive.ObjectID]string{}
	if len(senderIDs) > 0 {
		var err error
		names, err = h.userRepo.GetUsernames(c.Request.Context(), senderIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{Message: m, Sender: names[m.SenderID]})
	}
	return views, nil
}
