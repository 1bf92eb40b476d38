package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatroom-service/internal/db"
	"chatroom-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// historyLimit caps a room history query.
const historyLimit = 100

// MessageRepository abstracts chat message persistence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, senderID primitive.ObjectID, msgType, content string) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID primitive.ObjectID) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID primitive.ObjectID) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID primitive.ObjectID) (models.Message, error)
	ListRoomImages(ctx context.Context, roomID primitive.ObjectID) ([]models.Message, error)
}

// MessageRepo is a mongo-backed MessageRepository.
type MessageRepo struct {
	collection *mongo.Collection
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(database *mongo.Database) *MessageRepo {
	return &MessageRepo{collection: database.Collection(db.MessagesCollection)}
}

// CreateMessage stores a message in a room. An empty type defaults to text.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID, senderID primitive.ObjectID, msgType, content string) (models.Message, error) {
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := models.Message{
		ChatRoomID: roomID,
		SenderID:   senderID,
		Type:       msgType,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}

	res, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return msg, nil
}

// ListRoomMessages returns room messages in ascending timestamp order,
// capped at 100 results.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(historyLimit)

	cursor, err := r.collection.Find(ctx, bson.M{"chatRoomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID primitive.ObjectID) (models.Message, error) {
	var msg models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessage removes a message and returns the deleted document so the
// caller can broadcast the deletion to its room.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID primitive.ObjectID) (models.Message, error) {
	var msg models.Message
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListRoomImages returns image messages for a room in descending timestamp
// order.
func (r *MessageRepo) ListRoomImages(ctx context.Context, roomID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	filter := bson.M{"chatRoomId": roomID, "type": models.MessageTypeImage}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
