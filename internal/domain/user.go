package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string        `bson:"username" json:"username"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password" json:"-"`
	Verified     bool          `bson:"verified" json:"verified"`
	CreatedAt    time.Time     `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updated_at"`
}

// UserSummary is the user shape returned by account endpoints. The password
// hash never leaves the service layer.
type UserSummary struct {
	ID       bson.ObjectID `json:"_id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Verified bool          `json:"verified"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Verified: u.Verified}
}
