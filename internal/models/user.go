// Package models contains data structures for the application's domain models.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PlaceholderAvatar is used when neither the profile nor the identity carries a photo.
const PlaceholderAvatar = "/placeholder-user.jpg"

// User is the profile document stored under the identity provider's user id.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" bson:"_id" json:"id"`
	Username    string    `gorm:"size:64;index" bson:"username" json:"username"`
	Email       string    `gorm:"size:255;index" bson:"email" json:"email"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	Bio         string    `bson:"bio" json:"bio"`
	Avatar      string    `bson:"avatar" json:"avatar"`
	CreatedAt   time.Time `gorm:"index" bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// MarshalJSON renders CreatedAt as a calendar date.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"created_at"`
	}{alias(u), FormatDate(u.CreatedAt)})
}

// UsernameFromEmail derives a default username from the local part of an email address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// ProfileUpdate is a partial update of the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Fields returns the column/value pairs to write.
func (p ProfileUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if p.Username != nil {
		fields["username"] = *p.Username
	}
	if p.DisplayName != nil {
		fields["display_name"] = *p.DisplayName
	}
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	if p.Avatar != nil {
		fields["avatar"] = *p.Avatar
	}
	return fields
}
