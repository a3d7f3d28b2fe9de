package entities

import "time"

// CachedDetail keeps the last successfully fetched detail per task so the
// console can still show something when the backend is unreachable.
type CachedDetail struct {
	TaskID    int64     `gorm:"primaryKey" json:"task_id"`
	Payload   string    `gorm:"type:text" json:"payload"` // TaskDetail as JSON
	FetchedAt time.Time `json:"fetched_at"`
}
