package repository

import (
	"time"

	"fieldops/entities"
)

// DetailCache stores the last successfully fetched detail per task.
type DetailCache interface {
	Put(taskID int64, d *entities.TaskDetail) error
	Get(taskID int64) (*entities.TaskDetail, time.Time, error)
}
