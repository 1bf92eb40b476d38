package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account. Usernames and lowercase emails are unique.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string               `bson:"username" json:"username"`
	Phone        string               `bson:"phone" json:"phone"`
	Email        string               `bson:"email" json:"email"`
	Password     string               `bson:"password" json:"-"`
	ProfileImage string               `bson:"profileImage" json:"profileImage"`
	FamilyIDs    []primitive.ObjectID `bson:"familyIds" json:"familyIds"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// MemberInfo is the member view returned by the room members endpoint.
type MemberInfo struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}
