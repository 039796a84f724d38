package models

import (
	"encoding/json"
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Collection is a user-owned named set of pin ids ("board").
// Version is bumped on every membership change and guards concurrent writers.
type Collection struct {
	ID          string                      `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	UserID      string                      `gorm:"size:128;not null;index:idx_collections_user_id_created_at,priority:1" bson:"user_id" json:"user_id"`
	Name        string                      `gorm:"not null" bson:"name" json:"name"`
	Description string                      `bson:"description,omitempty" json:"description,omitempty"`
	PinIDs      datatypes.JSONSlice[string] `gorm:"column:pin_ids" bson:"pin_ids" json:"pin_ids"`
	Version     int64                       `gorm:"not null;default:0" bson:"version" json:"-"`
	CreatedAt   time.Time                   `gorm:"index:idx_collections_user_id_created_at,priority:2" bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Collection) TableName() string {
	return "collections"
}

// Contains reports whether pinID is a member.
func (c *Collection) Contains(pinID string) bool {
	return slices.Contains(c.PinIDs, pinID)
}

// WithPin returns the member list with pinID appended, or nil when it is already present.
func (c *Collection) WithPin(pinID string) []string {
	if c.Contains(pinID) {
		return nil
	}
	out := make([]string, 0, len(c.PinIDs)+1)
	out = append(out, c.PinIDs...)
	return append(out, pinID)
}

// WithoutPin returns the member list minus pinID, or nil when it is absent.
func (c *Collection) WithoutPin(pinID string) []string {
	if !c.Contains(pinID) {
		return nil
	}
	out := make([]string, 0, len(c.PinIDs))
	for _, id := range c.PinIDs {
		if id != pinID {
			out = append(out, id)
		}
	}
	return out
}

// MarshalJSON renders CreatedAt as a calendar date and never emits a null member list.
func (c Collection) MarshalJSON() ([]byte, error) {
	type alias Collection
	pins := []string(c.PinIDs)
	if pins == nil {
		pins = []string{}
	}
	return json.Marshal(struct {
		alias
		PinIDs    []string `json:"pin_ids"`
		CreatedAt string   `json:"created_at"`
	}{alias(c), pins, FormatDate(c.CreatedAt)})
}
