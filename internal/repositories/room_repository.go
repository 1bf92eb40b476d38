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

var (
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrAlreadyMember = errors.New("user is already a room member")
	ErrNotMember     = errors.New("user is not a room member")
)

// RoomRepository abstracts chat room persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, name string, members []primitive.ObjectID) (models.ChatRoom, error)
	GetRoom(ctx context.Context, roomID primitive.ObjectID) (models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChatRoom, error)
	AddMember(ctx context.Context, roomID, userID primitive.ObjectID) (models.ChatRoom, error)
	RemoveMember(ctx context.Context, roomID, userID primitive.ObjectID) (models.ChatRoom, error)
}

// RoomRepo is a mongo-backed RoomRepository.
type RoomRepo struct {
	collection *mongo.Collection
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(database *mongo.Database) *RoomRepo {
	return &RoomRepo{collection: database.Collection(db.RoomsCollection)}
}

// CreateRoom persists a room with its resolved member ids.
func (r *RoomRepo) CreateRoom(ctx context.Context, name string, members []primitive.ObjectID) (models.ChatRoom, error) {
	room := models.ChatRoom{
		Name:      name,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.collection.InsertOne(ctx, room)
	if err != nil {
		return models.ChatRoom{}, err
	}
	room.ID = res.InsertedID.(primitive.ObjectID)
	return room, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID primitive.ObjectID) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.collection.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// ListRoomsForUser returns every room whose member list contains the user.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChatRoom, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []models.ChatRoom{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// AddMember appends a user to the room member list. $addToSet keeps the list
// free of duplicates; a no-op update means the user was already a member.
func (r *RoomRepo) AddMember(ctx context.Context, roomID, userID primitive.ObjectID) (models.ChatRoom, error) {
	update := bson.M{"$addToSet": bson.M{"members": userID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.ChatRoom
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": roomID}, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	if err != nil {
		return models.ChatRoom{}, err
	}

	for _, member := range before.Members {
		if member == userID {
			return models.ChatRoom{}, ErrAlreadyMember
		}
	}
	before.Members = append(before.Members, userID)
	return before, nil
}

// RemoveMember removes a user from the room member list.
func (r *RoomRepo) RemoveMember(ctx context.Context, roomID, userID primitive.ObjectID) (models.ChatRoom, error) {
	update := bson.M{"$pull": bson.M{"members": userID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.ChatRoom
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": roomID}, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	if err != nil {
		return models.ChatRoom{}, err
	}

	remaining := make([]primitive.ObjectID, 0, len(before.Members))
	wasMember := false
	for _, member := range before.Members {
		if member == userID {
			wasMember = true
			continue
		}
		remaining = append(remaining, member)
	}
	if !wasMember {
		return models.ChatRoom{}, ErrNotMember
	}
	before.Members = remaining
	return before, nil
}
