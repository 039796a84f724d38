package models

import "time"

// PinLike records that a user liked a pin. The likes counter on Pin stays the
// display value; these marks are the per-user attribution used to reconcile
// device-local like state.
type PinLike struct {
	ID        string    `gorm:"primaryKey;size:200" bson:"_id" json:"id"`
	UserID    string    `gorm:"size:128;not null;index" bson:"user_id" json:"user_id"`
	PinID     string    `gorm:"size:64;not null;index" bson:"pin_id" json:"pin_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (PinLike) TableName() string {
	return "pin_likes"
}

// PinLikeID builds the composite document id of a like mark.
func PinLikeID(userID, pinID string) string {
	return userID + "_" + pinID
}
