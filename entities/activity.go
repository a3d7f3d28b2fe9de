package entities

import "time"

// ActivityEntry is server-reported history. The console never constructs or
// mutates these; they are displayed exactly as fetched.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"` // Created|Edited|Approved|Rejected|AttachmentAdded|...
	Description string    `json:"description"`
	PerformedBy string    `json:"performed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
