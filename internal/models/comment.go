package models

import (
	"encoding/json"
	"time"
)

// Comment is a text reply attached to a pin.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	PinID     string    `gorm:"size:64;not null;index:idx_comments_pin_id_created_at,priority:1" bson:"pin_id" json:"pin_id"`
	UserID    string    `gorm:"size:128;not null;index" bson:"user_id" json:"user_id"`
	Text      string    `gorm:"type:text;not null" bson:"text" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_comments_pin_id_created_at,priority:2" bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// MarshalJSON renders CreatedAt as a full instant.
func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"created_at"`
	}{alias(c), FormatInstant(c.CreatedAt)})
}
