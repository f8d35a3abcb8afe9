package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OneTimeCode stores the argon2id hash of an emailed verification code.
// At most one live code exists per user: every send deletes the previous
// records before inserting a fresh one.
type OneTimeCode struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"userID"`
	CodeHash  string        `bson:"code"`
	ExpiresAt time.Time     `bson:"expiresAt"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (c *OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
