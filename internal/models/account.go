package models

import "time"

// Account holds credentials for the built-in identity provider.
type Account struct {
	ID           string    `gorm:"primaryKey;size:128" bson:"_id" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" bson:"email" json:"email"`
	PasswordHash string    `gorm:"not null" bson:"password_hash" json:"-"`
	DisplayName  string    `bson:"display_name" json:"display_name"`
	PhotoURL     string    `bson:"photo_url" json:"photo_url"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}
