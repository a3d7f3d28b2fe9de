package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"fieldops/entities"
)

type httpClient struct {
	rc *resty.Client
}

// NewHTTP talks to the company backend under baseURL/api/v1 with bearer auth.
func NewHTTP(baseURL, token string, timeout time.Duration) Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &httpClient{rc: rc}
}

type errBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (b errBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

func (c *httpClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var eb errBody
	req := c.rc.R().SetContext(ctx).SetError(&eb)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return &APIError{Op: op, Message: err.Error()}
	}
	if resp.IsError() {
		msg := eb.text()
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

func (c *httpClient) GetTaskDetail(ctx context.Context, taskID int64) (*entities.TaskDetail, error) {
	var out entities.TaskDetail
	if err := c.do(ctx, "get task detail", "GET", fmt.Sprintf("/api/v1/tasks/%d", taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) UpdateTask(ctx context.Context, taskID int64, patch TaskPatch) (*entities.Task, error) {
	var out entities.Task
	if err := c.do(ctx, "update task", "PATCH", fmt.Sprintf("/api/v1/tasks/%d", taskID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) CreateResourceLine(ctx context.Context, taskID int64, in ResourceInput) (*entities.ResourceLine, error) {
	var out entities.ResourceLine
	if err := c.do(ctx, "create resource line", "POST", fmt.Sprintf("/api/v1/tasks/%d/resources", taskID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) UpdateResourceLine(ctx context.Context, taskID, lineID int64, in ResourceInput) (*entities.ResourceLine, error) {
	var out entities.ResourceLine
	if err := c.do(ctx, "update resource line", "PUT", fmt.Sprintf("/api/v1/tasks/%d/resources/%d", taskID, lineID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) DeleteResourceLine(ctx context.Context, taskID, lineID int64) error {
	return c.do(ctx, "delete resource line", "DELETE", fmt.Sprintf("/api/v1/tasks/%d/resources/%d", taskID, lineID), nil, nil)
}

func (c *httpClient) UploadAttachment(ctx context.Context, taskID int64, up Upload) (*entities.Attachment, error) {
	var eb errBody
	var out entities.Attachment
	resp, err := c.rc.R().
		SetContext(ctx).
		SetError(&eb).
		SetResult(&out).
		SetFileReader("file", up.FileName, up.Content).
		SetFormData(map[string]string{"notes": up.Notes, "uploaded_by": up.UploadedBy}).
		Post(fmt.Sprintf("/api/v1/tasks/%d/attachments", taskID))
	if err != nil {
		return nil, &APIError{Op: "upload attachment", Message: err.Error()}
	}
	if resp.IsError() {
		msg := eb.text()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, &APIError{Op: "upload attachment", StatusCode: resp.StatusCode(), Message: msg}
	}
	return &out, nil
}

func (c *httpClient) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	return c.do(ctx, "delete attachment", "DELETE", fmt.Sprintf("/api/v1/tasks/%d/attachments/%d", taskID, attachmentID), nil, nil)
}

func (c *httpClient) ApproveTask(ctx context.Context, taskID int64) (*entities.Task, error) {
	var out entities.Task
	if err := c.do(ctx, "approve task", "POST", fmt.Sprintf("/api/v1/tasks/%d/approve", taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) RejectTask(ctx context.Context, taskID int64, reason string) (*entities.Task, error) {
	var out entities.Task
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, "reject task", "POST", fmt.Sprintf("/api/v1/tasks/%d/reject", taskID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
