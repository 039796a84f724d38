package models

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// Its ID is the composite FollowID(follower, following).
type Follow struct {
	ID          string    `gorm:"primaryKey;size:260" bson:"_id" json:"id"`
	FollowerID  string    `gorm:"size:128;not null;index" bson:"follower_id" json:"follower_id"`
	FollowingID string    `gorm:"size:128;not null;index" bson:"following_id" json:"following_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// FollowID builds the composite document id of a follow edge.
func FollowID(followerID, followingID string) string {
	return followerID + "_" + followingID
}
