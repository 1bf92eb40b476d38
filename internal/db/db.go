package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used across the repositories.
const (
	UsersCollection    = "users"
	RoomsCollection    = "chatrooms"
	MessagesCollection = "messages"
)

// Connect initializes the MongoDB connection and ensures indexes.
func Connect(ctx context.Context) (*mongo.Database, error) {
	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")
	name := getEnv("MONGO_DB", "chatroom_service")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(name)
	if err := ensureIndexes(connectCtx, database); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return database, nil
}

// ensureIndexes enforces the unique constraints on username and email and
// keeps the message history query covered.
func ensureIndexes(ctx context.Context, database *mongo.Database) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := database.Collection(UsersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chatRoomId", Value: 1}, {Key: "timestamp", Value: 1}}},
	}
	if _, err := database.Collection(MessagesCollection).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	roomIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "members", Value: 1}}},
	}
	if _, err := database.Collection(RoomsCollection).Indexes().CreateMany(ctx, roomIndexes); err != nil {
		return err
	}

	log.Println("database indexes ensured")
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
