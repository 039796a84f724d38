package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Category is the fixed classification of a pin.
type Category string

const (
	CategoryIllustration Category = "illustration"
	CategoryDesign       Category = "design"
	CategoryPhotography  Category = "photography"
	CategoryConceptArt   Category = "concept-art"
	CategoryDrawing      Category = "drawing"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryIllustration,
		CategoryDesign,
		CategoryPhotography,
		CategoryConceptArt,
		CategoryDrawing,
	}
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Pin is a single user-submitted creative work.
type Pin struct {
	ID          string                      `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	UserID      string                      `gorm:"size:128;not null;index:idx_pins_user_id_created_at,priority:1" bson:"user_id" json:"user_id"`
	Title       string                      `gorm:"not null" bson:"title" json:"title"`
	Description string                      `gorm:"type:text" bson:"description" json:"description"`
	Image       string                      `bson:"image" json:"image"`
	Category    Category                    `gorm:"size:32;index" bson:"category" json:"category"`
	Tags        datatypes.JSONSlice[string] `bson:"tags" json:"tags"`
	Likes       int                         `gorm:"not null;default:0;index" bson:"likes" json:"likes"`
	CreatedAt   time.Time                   `gorm:"index:idx_pins_user_id_created_at,priority:2;index" bson:"created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Pin) TableName() string {
	return "pins"
}

// MarshalJSON renders CreatedAt as a calendar date and never emits a null tag list.
func (p Pin) MarshalJSON() ([]byte, error) {
	type alias Pin
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(struct {
		alias
		Tags      []string `json:"tags"`
		CreatedAt string   `json:"created_at"`
	}{alias(p), tags, FormatDate(p.CreatedAt)})
}
