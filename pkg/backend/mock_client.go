package backend

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fieldops/entities"
)

// mockClient is the in-memory stand-in used when no BACKEND_URL is configured.
// It plays the server: assigns real ids and appends activity entries.
type mockClient struct {
	mu      sync.Mutex
	details map[int64]*entities.TaskDetail
	nextRes int64
	nextAtt int64
	nextAct int64
}

func NewMock() Client {
	m := &mockClient{
		details: map[int64]*entities.TaskDetail{},
		nextRes: 100,
		nextAtt: 100,
		nextAct: 100,
	}
	cost := 25.0
	total := 100.0
	m.details[1] = &entities.TaskDetail{
		Task: entities.Task{
			ID:           1,
			Status:       entities.StatusOpen,
			Date:         time.Now().Format("2006-01-02"),
			Location:     "Sector 18, Noida",
			AssigneeName: "R. Sharma",
			ProjectName:  "Metro substation retrofit",
		},
		Resources: []entities.ResourceLine{
			{ID: 1, ResourceName: "PVC pipe 2in", Quantity: 4, UnitCost: &cost, TotalCost: &total},
		},
		Activity: []entities.ActivityEntry{
			{ID: 1, Type: "Created", Description: "Task created", PerformedBy: "dispatcher", Timestamp: time.Now()},
		},
	}
	return m
}

func (m *mockClient) get(taskID int64) (*entities.TaskDetail, error) {
	d, ok := m.details[taskID]
	if !ok {
		return nil, &APIError{Op: "get task detail", StatusCode: 404, Message: fmt.Sprintf("task %d not found", taskID)}
	}
	return d, nil
}

func (m *mockClient) logActivity(d *entities.TaskDetail, typ, desc, by string) {
	m.nextAct++
	d.Activity = append(d.Activity, entities.ActivityEntry{
		ID: m.nextAct, Type: typ, Description: desc, PerformedBy: by, Timestamp: time.Now(),
	})
}

func (m *mockClient) GetTaskDetail(ctx context.Context, taskID int64) (*entities.TaskDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	cp := *d
	cp.Resources = append([]entities.ResourceLine(nil), d.Resources...)
	cp.Attachments = append([]entities.Attachment(nil), d.Attachments...)
	cp.Activity = append([]entities.ActivityEntry(nil), d.Activity...)
	return &cp, nil
}

func (m *mockClient) UpdateTask(ctx context.Context, taskID int64, patch TaskPatch) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	if patch.InternalNotes != nil {
		d.Task.InternalNotes = *patch.InternalNotes
		m.logActivity(d, "Edited", "Internal notes updated", "console")
	}
	t := d.Task
	return &t, nil
}

func (m *mockClient) CreateResourceLine(ctx context.Context, taskID int64, in ResourceInput) (*entities.ResourceLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	m.nextRes++
	line := entities.ResourceLine{
		ID:           m.nextRes,
		ResourceName: in.ResourceName,
		Quantity:     in.Quantity,
		UnitCost:     in.UnitCost,
		TotalCost:    in.TotalCost,
	}
	d.Resources = append(d.Resources, line)
	m.logActivity(d, "Edited", "Resource added: "+in.ResourceName, "console")
	return &line, nil
}

func (m *mockClient) UpdateResourceLine(ctx context.Context, taskID, lineID int64, in ResourceInput) (*entities.ResourceLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	for i := range d.Resources {
		if d.Resources[i].ID == lineID {
			if in.ResourceName != "" {
				d.Resources[i].ResourceName = in.ResourceName
			}
			d.Resources[i].Quantity = in.Quantity
			d.Resources[i].UnitCost = in.UnitCost
			d.Resources[i].TotalCost = in.TotalCost
			m.logActivity(d, "Edited", "Resource updated: "+d.Resources[i].ResourceName, "console")
			line := d.Resources[i]
			return &line, nil
		}
	}
	return nil, &APIError{Op: "update resource line", StatusCode: 404, Message: fmt.Sprintf("resource %d not found", lineID)}
}

func (m *mockClient) DeleteResourceLine(ctx context.Context, taskID, lineID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return err
	}
	for i := range d.Resources {
		if d.Resources[i].ID == lineID {
			m.logActivity(d, "Edited", "Resource removed: "+d.Resources[i].ResourceName, "console")
			d.Resources = append(d.Resources[:i], d.Resources[i+1:]...)
			return nil
		}
	}
	return &APIError{Op: "delete resource line", StatusCode: 404, Message: fmt.Sprintf("resource %d not found", lineID)}
}

func (m *mockClient) UploadAttachment(ctx context.Context, taskID int64, up Upload) (*entities.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	if up.Content != nil {
		if _, err := io.Copy(io.Discard, up.Content); err != nil {
			return nil, &APIError{Op: "upload attachment", Message: err.Error()}
		}
	}
	by := up.UploadedBy
	if by == "" {
		by = "console"
	}
	m.nextAtt++
	att := entities.Attachment{
		ID:         m.nextAtt,
		FileName:   up.FileName,
		FileURL:    fmt.Sprintf("/files/%d/%s", m.nextAtt, up.FileName),
		FileType:   entities.FileTypeOf(up.FileName),
		UploadedBy: by,
		UploadedAt: time.Now(),
		Notes:      up.Notes,
	}
	d.Attachments = append(d.Attachments, att)
	m.logActivity(d, "AttachmentAdded", "Uploaded "+up.FileName, by)
	return &att, nil
}

func (m *mockClient) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return err
	}
	for i := range d.Attachments {
		if d.Attachments[i].ID == attachmentID {
			m.logActivity(d, "Edited", "Attachment removed: "+d.Attachments[i].FileName, "console")
			d.Attachments = append(d.Attachments[:i], d.Attachments[i+1:]...)
			return nil
		}
	}
	return &APIError{Op: "delete attachment", StatusCode: 404, Message: fmt.Sprintf("attachment %d not found", attachmentID)}
}

func (m *mockClient) ApproveTask(ctx context.Context, taskID int64) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	if d.Task.Status != entities.StatusOpen {
		return nil, &APIError{Op: "approve task", StatusCode: 422, Message: "task is not open"}
	}
	d.Task.Status = entities.StatusApproved
	m.logActivity(d, "Approved", "Task approved", "console")
	t := d.Task
	return &t, nil
}

func (m *mockClient) RejectTask(ctx context.Context, taskID int64, reason string) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(taskID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &APIError{Op: "reject task", StatusCode: 422, Message: "reason is required"}
	}
	if d.Task.Status != entities.StatusOpen {
		return nil, &APIError{Op: "reject task", StatusCode: 422, Message: "task is not open"}
	}
	d.Task.Status = entities.StatusRejected
	m.logActivity(d, "Rejected", "Task rejected: "+reason, "console")
	t := d.Task
	return &t, nil
}
