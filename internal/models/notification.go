package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType identifies the variant of a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// NotificationPayload is the variant-specific part of a Notification.
// The set of implementations is closed: LikePayload, CommentPayload,
// FollowPayload and MentionPayload.
type NotificationPayload interface {
	Kind() NotificationType
	fill(r *NotificationRecord)
}

// LikePayload is carried by "like" notifications.
type LikePayload struct {
	PinID string
}

// CommentPayload is carried by "comment" notifications.
type CommentPayload struct {
	PinID     string
	CommentID string
}

// FollowPayload is carried by "follow" notifications. It has no fields.
type FollowPayload struct{}

// MentionPayload is carried by "mention" notifications.
type MentionPayload struct {
	PinID     string
	CommentID string
	Text      string
}

func (LikePayload) Kind() NotificationType    { return NotificationLike }
func (CommentPayload) Kind() NotificationType { return NotificationComment }
func (FollowPayload) Kind() NotificationType  { return NotificationFollow }
func (MentionPayload) Kind() NotificationType { return NotificationMention }

func (p LikePayload) fill(r *NotificationRecord) { r.PinID = p.PinID }

func (p CommentPayload) fill(r *NotificationRecord) {
	r.PinID = p.PinID
	r.CommentID = p.CommentID
}

func (FollowPayload) fill(*NotificationRecord) {}

func (p MentionPayload) fill(r *NotificationRecord) {
	r.PinID = p.PinID
	r.CommentID = p.CommentID
	r.Text = p.Text
}

// Notification informs UserID that FromUserID acted on them or their content.
type Notification struct {
	ID         string
	UserID     string
	FromUserID string
	Read       bool
	CreatedAt  time.Time
	Payload    NotificationPayload
}

// Type returns the variant tag.
func (n Notification) Type() NotificationType {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

// PinID returns the referenced pin, if the variant carries one.
func (n Notification) PinID() (string, bool) {
	switch p := n.Payload.(type) {
	case LikePayload:
		return p.PinID, p.PinID != ""
	case CommentPayload:
		return p.PinID, p.PinID != ""
	case MentionPayload:
		return p.PinID, p.PinID != ""
	}
	return "", false
}

// Record flattens the notification for storage.
func (n Notification) Record() NotificationRecord {
	r := NotificationRecord{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type(),
		FromUserID: n.FromUserID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
	if n.Payload != nil {
		n.Payload.fill(&r)
	}
	return r
}

// MarshalJSON emits the flat wire shape with the variant fields inlined.
func (n Notification) MarshalJSON() ([]byte, error) {
	r := n.Record()
	return json.Marshal(struct {
		ID         string           `json:"id"`
		UserID     string           `json:"user_id"`
		Type       NotificationType `json:"type"`
		FromUserID string           `json:"from_user_id"`
		PinID      string           `json:"pin_id,omitempty"`
		CommentID  string           `json:"comment_id,omitempty"`
		Text       string           `json:"text,omitempty"`
		Read       bool             `json:"read"`
		CreatedAt  string           `json:"created_at"`
	}{r.ID, r.UserID, r.Type, r.FromUserID, r.PinID, r.CommentID, r.Text, r.Read, FormatInstant(r.CreatedAt)})
}

// NotificationRecord is the stored form of a Notification. Optional
// variant fields are empty strings when the variant does not carry them.
type NotificationRecord struct {
	ID         string           `gorm:"primaryKey;size:64" bson:"_id"`
	UserID     string           `gorm:"size:128;not null;index:idx_notifications_user_id_created_at,priority:1;index:idx_notifications_user_id_read,priority:1" bson:"user_id"`
	Type       NotificationType `gorm:"size:16;not null" bson:"type"`
	FromUserID string           `gorm:"size:128;not null" bson:"from_user_id"`
	PinID      string           `gorm:"size:64" bson:"pin_id,omitempty"`
	CommentID  string           `gorm:"size:64" bson:"comment_id,omitempty"`
	Text       string           `gorm:"type:text" bson:"text,omitempty"`
	Read       bool             `gorm:"not null;default:false;index:idx_notifications_user_id_read,priority:2" bson:"read"`
	CreatedAt  time.Time        `gorm:"index:idx_notifications_user_id_created_at,priority:2" bson:"created_at"`
}

// TableName specifies the table name for GORM
func (NotificationRecord) TableName() string {
	return "notifications"
}

// Notification rebuilds the tagged form, rejecting records whose variant
// fields are inconsistent with their type.
func (r NotificationRecord) Notification() (Notification, error) {
	n := Notification{
		ID:         r.ID,
		UserID:     r.UserID,
		FromUserID: r.FromUserID,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
	}
	switch r.Type {
	case NotificationLike:
		if r.PinID == "" {
			return n, fmt.Errorf("like notification %s has no pin", r.ID)
		}
		n.Payload = LikePayload{PinID: r.PinID}
	case NotificationComment:
		if r.PinID == "" || r.CommentID == "" {
			return n, fmt.Errorf("comment notification %s has no pin or comment", r.ID)
		}
		n.Payload = CommentPayload{PinID: r.PinID, CommentID: r.CommentID}
	case NotificationFollow:
		n.Payload = FollowPayload{}
	case NotificationMention:
		n.Payload = MentionPayload{PinID: r.PinID, CommentID: r.CommentID, Text: r.Text}
	default:
		return n, fmt.Errorf("notification %s has unknown type %q", r.ID, r.Type)
	}
	return n, nil
}
