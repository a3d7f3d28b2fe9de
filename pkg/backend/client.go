package backend

import (
	"context"
	"fmt"
	"io"

	"fieldops/entities"
)

// TaskPatch carries the task fields the console is allowed to change.
type TaskPatch struct {
	InternalNotes *string `json:"internal_notes,omitempty"`
}

// ResourceInput is the payload for creating or updating a ledger line.
type ResourceInput struct {
	ResourceName string   `json:"resource_name"`
	Quantity     float64  `json:"quantity"`
	UnitCost     *float64 `json:"unit_cost"`
	TotalCost    *float64 `json:"total_cost"`
}

type Upload struct {
	FileName   string
	Content    io.Reader
	Notes      string
	UploadedBy string
}

// Client is the remote REST collaborator. The console is indifferent to how
// these nine operations are transported.
type Client interface {
	GetTaskDetail(ctx context.Context, taskID int64) (*entities.TaskDetail, error)
	UpdateTask(ctx context.Context, taskID int64, patch TaskPatch) (*entities.Task, error)
	CreateResourceLine(ctx context.Context, taskID int64, in ResourceInput) (*entities.ResourceLine, error)
	UpdateResourceLine(ctx context.Context, taskID, lineID int64, in ResourceInput) (*entities.ResourceLine, error)
	DeleteResourceLine(ctx context.Context, taskID, lineID int64) error
	UploadAttachment(ctx context.Context, taskID int64, up Upload) (*entities.Attachment, error)
	DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error
	ApproveTask(ctx context.Context, taskID int64) (*entities.Task, error)
	RejectTask(ctx context.Context, taskID int64, reason string) (*entities.Task, error)
}

// APIError carries the backend's message verbatim; the console applies no
// retry policy and reports it as-is.
type APIError struct {
	Op         string
	StatusCode int // 0 when the call never reached the backend
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
