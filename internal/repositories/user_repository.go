package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatroom-service/internal/db"
	"chatroom-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already taken")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	FindMembersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MemberInfo, error)
	GetUsernames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// UserRepo is a mongo-backed UserRepository.
type UserRepo struct {
	collection *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{collection: database.Collection(db.UsersCollection)}
}

// CreateUser inserts a new user. Duplicate username or email maps to
// ErrDuplicateUser via the unique indexes.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.FamilyIDs == nil {
		user.FamilyIDs = []primitive.ObjectID{}
	}

	res, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

// GetUserByID fetches a single user by object id.
func (r *UserRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByUsername fetches a single user by exact username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByIdentifier resolves a login identifier that may be either an email
// or a username.
func (r *UserRepo) GetUserByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(strings.TrimSpace(identifier))},
		bson.M{"username": identifier},
	}}

	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindUsersByUsernames returns every user whose username is in the list.
// Callers compare lengths to detect unresolved usernames.
func (r *UserRepo) FindUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"username": bson.M{"$in": usernames}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindMembersByIDs returns the member view (id, username, email) for a set of
// user ids, preserving the order of the input list.
func (r *UserRepo) FindMembersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MemberInfo, error) {
	projection := options.Find().SetProjection(bson.M{"username": 1, "email": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var found []models.MemberInfo
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.MemberInfo, len(found))
	for _, member := range found {
		byID[member.ID] = member
	}

	members := make([]models.MemberInfo, 0, len(ids))
	for _, id := range ids {
		if member, ok := byID[id]; ok {
			members = append(members, member)
		}
	}
	return members, nil
}

// GetUsernames maps user ids to usernames for sender resolution.
func (r *UserRepo) GetUsernames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	projection := options.Find().SetProjection(bson.M{"username": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	names := make(map[primitive.ObjectID]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Username
	}
	return names, nil
}
