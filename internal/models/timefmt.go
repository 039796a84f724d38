package models

import "time"

const (
	dateLayout    = "2006-01-02"
	instantLayout = "2006-01-02T15:04:05.000Z"
)

// FormatDate normalizes a stored timestamp to a UTC calendar date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// FormatInstant normalizes a stored timestamp to a UTC instant with millisecond precision.
func FormatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(instantLayout)
}

// Dump is a full export of every collection.
type Dump struct {
	Users         []User         `json:"users"`
	Pins          []Pin          `json:"pins"`
	Comments      []Comment      `json:"comments"`
	Follows       []Follow       `json:"follows"`
	Notifications []Notification `json:"notifications"`
	Collections   []Collection   `json:"collections"`
}
