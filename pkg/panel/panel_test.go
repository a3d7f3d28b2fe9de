package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops/entities"
	"fieldops/pkg/backend"
)

// stubBackend records every call and applies mutations to its detail so that
// the re-fetch after a save observes the committed state. The update gates let
// a test hold an UpdateTask call in flight.
type stubBackend struct {
	mu     sync.Mutex
	detail *entities.TaskDetail
	calls  []string
	failOn map[string]error
	nextID int64

	updateEntered chan struct{} // signalled when UpdateTask starts
	updateRelease chan struct{} // UpdateTask blocks until closed
}

func newStub(d *entities.TaskDetail) *stubBackend {
	return &stubBackend{detail: d, failOn: map[string]error{}, nextID: 100}
}

func (s *stubBackend) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (s *stubBackend) call(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return s.failOn[op]
}

func (s *stubBackend) GetTaskDetail(ctx context.Context, taskID int64) (*entities.TaskDetail, error) {
	if err := s.call("getTaskDetail"); err != nil {
		return nil, err
	}
	cp := *s.detail
	cp.Resources = append([]entities.ResourceLine(nil), s.detail.Resources...)
	return &cp, nil
}

func (s *stubBackend) UpdateTask(ctx context.Context, taskID int64, patch backend.TaskPatch) (*entities.Task, error) {
	if s.updateEntered != nil {
		s.updateEntered <- struct{}{}
	}
	if s.updateRelease != nil {
		<-s.updateRelease
	}
	if err := s.call("updateTask"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.InternalNotes != nil {
		s.detail.Task.InternalNotes = *patch.InternalNotes
	}
	t := s.detail.Task
	return &t, nil
}

func (s *stubBackend) CreateResourceLine(ctx context.Context, taskID int64, in backend.ResourceInput) (*entities.ResourceLine, error) {
	if err := s.call(fmt.Sprintf("createResourceLine(%s,%g)", in.ResourceName, in.Quantity)); err != nil {
		return nil, err
	}
	s.nextID++
	line := entities.ResourceLine{ID: s.nextID, ResourceName: in.ResourceName, Quantity: in.Quantity, UnitCost: in.UnitCost, TotalCost: in.TotalCost}
	s.detail.Resources = append(s.detail.Resources, line)
	return &line, nil
}

func (s *stubBackend) UpdateResourceLine(ctx context.Context, taskID, lineID int64, in backend.ResourceInput) (*entities.ResourceLine, error) {
	if err := s.call(fmt.Sprintf("updateResourceLine(%d,%g)", lineID, in.Quantity)); err != nil {
		return nil, err
	}
	for i := range s.detail.Resources {
		if s.detail.Resources[i].ID == lineID {
			s.detail.Resources[i].Quantity = in.Quantity
			s.detail.Resources[i].UnitCost = in.UnitCost
			s.detail.Resources[i].TotalCost = in.TotalCost
			line := s.detail.Resources[i]
			return &line, nil
		}
	}
	return nil, &backend.APIError{Op: "update resource line", StatusCode: 404, Message: "not found"}
}

func (s *stubBackend) DeleteResourceLine(ctx context.Context, taskID, lineID int64) error {
	if err := s.call("deleteResourceLine"); err != nil {
		return err
	}
	for i := range s.detail.Resources {
		if s.detail.Resources[i].ID == lineID {
			s.detail.Resources = append(s.detail.Resources[:i], s.detail.Resources[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Op: "delete resource line", StatusCode: 404, Message: "not found"}
}

func (s *stubBackend) UploadAttachment(ctx context.Context, taskID int64, up backend.Upload) (*entities.Attachment, error) {
	if err := s.call("uploadAttachment"); err != nil {
		return nil, err
	}
	s.nextID++
	att := entities.Attachment{ID: s.nextID, FileName: up.FileName, FileType: entities.FileTypeOf(up.FileName), UploadedAt: time.Now()}
	s.detail.Attachments = append(s.detail.Attachments, att)
	return &att, nil
}

func (s *stubBackend) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	return s.call("deleteAttachment")
}

func (s *stubBackend) ApproveTask(ctx context.Context, taskID int64) (*entities.Task, error) {
	if err := s.call("approveTask"); err != nil {
		return nil, err
	}
	s.detail.Task.Status = entities.StatusApproved
	t := s.detail.Task
	return &t, nil
}

func (s *stubBackend) RejectTask(ctx context.Context, taskID int64, reason string) (*entities.Task, error) {
	if err := s.call("rejectTask"); err != nil {
		return nil, err
	}
	s.detail.Task.Status = entities.StatusRejected
	t := s.detail.Task
	return &t, nil
}

func freshDetail() *entities.TaskDetail {
	return &entities.TaskDetail{
		Task: entities.Task{ID: 9, Status: entities.StatusOpen, InternalNotes: "call before arrival"},
		Resources: []entities.ResourceLine{
			{ID: 1, ResourceName: "Pipe", Quantity: 4, UnitCost: fp(25), TotalCost: fp(100)},
		},
	}
}

func openPanel(t *testing.T, stub *stubBackend) *Panel {
	t.Helper()
	mgr := NewManager(stub, nil)
	p, err := mgr.Open(context.Background(), 9)
	require.NoError(t, err)
	return p
}

func TestSaveNoopWhenClean(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	fetches := stub.count("getTaskDetail")

	require.NoError(t, p.Save(context.Background()))
	assert.Equal(t, 0, stub.count("updateTask"))
	assert.Equal(t, fetches, stub.count("getTaskDetail"), "clean save must not touch the network")
}

func TestSaveEndToEnd(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	id, err := p.AddLine()
	require.NoError(t, err)
	require.NoError(t, p.UpdateLine(id, LinePatch{Name: sp("Valve")}))
	require.NoError(t, p.UpdateLine(id, LinePatch{Quantity: fp(2), UnitCost: fp(75)}))
	require.True(t, p.Dirty())

	require.NoError(t, p.Save(context.Background()))

	// unchanged line 1 is still resent as an idempotent update
	assert.Equal(t, 1, stub.count("updateResourceLine(1,4)"))
	assert.Equal(t, 1, stub.count("createResourceLine(Valve,2)"))
	assert.Equal(t, 1, stub.count("updateTask"))
	assert.False(t, p.Dirty(), "re-fetch after save clears dirty")

	v := p.View()
	require.Len(t, v.Ledger.Lines, 2)
	assert.True(t, v.Ledger.Lines[1].Persisted(), "created line came back with a real id")
	assert.Equal(t, 250.0, v.Ledger.Total)
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	require.NoError(t, p.SetNotes("updated"))

	stub.failOn["updateTask"] = &backend.APIError{Op: "update task", StatusCode: 500, Message: "boom"}
	err := p.Save(context.Background())
	require.Error(t, err)
	assert.True(t, p.Dirty(), "failed save leaves the draft dirty for retry")
	assert.Equal(t, "updated", p.View().Notes)

	delete(stub.failOn, "updateTask")
	require.NoError(t, p.Save(context.Background()))
	assert.False(t, p.Dirty())
}

func TestRemoveSyntheticLineIsLocalOnly(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	id, err := p.AddLine()
	require.NoError(t, err)
	require.NoError(t, p.RemoveLine(context.Background(), id, false))
	assert.Equal(t, 0, stub.count("deleteResourceLine"))
	assert.Len(t, p.View().Ledger.Lines, 1)
}

func TestRemovePersistedLineNeedsConfirm(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	err := p.RemoveLine(context.Background(), 1, false)
	assert.ErrorIs(t, err, ErrConfirmRequired)
	assert.Equal(t, 0, stub.count("deleteResourceLine"))
	assert.Len(t, p.View().Ledger.Lines, 1, "draft unchanged without confirmation")

	require.NoError(t, p.RemoveLine(context.Background(), 1, true))
	assert.Equal(t, 1, stub.count("deleteResourceLine"))
	assert.Empty(t, p.View().Ledger.Lines, "confirmed delete re-fetched the emptied ledger")
}

func TestApproveForcesSaveFirst(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	require.NoError(t, p.SetNotes("ready"))

	require.NoError(t, p.Approve(context.Background(), false))
	calls := stub.calls
	var saw []string
	for _, c := range calls {
		if c == "updateTask" || c == "approveTask" {
			saw = append(saw, c)
		}
	}
	assert.Equal(t, []string{"updateTask", "approveTask"}, saw, "save must complete before the transition")
	assert.Equal(t, entities.StatusApproved, p.View().Task.Status)
}

func TestApproveAbortsWhenSaveFails(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	require.NoError(t, p.SetNotes("ready"))

	stub.failOn["updateTask"] = &backend.APIError{Op: "update task", StatusCode: 500, Message: "boom"}
	err := p.Approve(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, 0, stub.count("approveTask"), "approval never fires against unsaved data")
	assert.True(t, p.Dirty())
}

func TestApproveRequiresMissingCostAck(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	id, err := p.AddLine()
	require.NoError(t, err)
	require.NoError(t, p.UpdateLine(id, LinePatch{Name: sp("Sealant"), Quantity: fp(1)}))

	err = p.Approve(context.Background(), false)
	assert.ErrorIs(t, err, ErrMissingCosts)
	assert.Equal(t, 0, stub.count("approveTask"))

	require.NoError(t, p.Approve(context.Background(), true))
	assert.Equal(t, 1, stub.count("approveTask"))
}

func TestApproveRejectOnlyWhileOpen(t *testing.T) {
	d := freshDetail()
	d.Task.Status = entities.StatusApproved
	stub := newStub(d)
	p := openPanel(t, stub)

	assert.ErrorIs(t, p.Approve(context.Background(), true), ErrNotReviewable)
	assert.ErrorIs(t, p.Reject(context.Background(), "late"), ErrNotReviewable)
	assert.Equal(t, 0, stub.count("approveTask"))
	assert.Equal(t, 0, stub.count("rejectTask"))
}

func TestRejectRequiresReason(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	assert.ErrorIs(t, p.Reject(context.Background(), ""), ErrReasonRequired)
	assert.ErrorIs(t, p.Reject(context.Background(), "   "), ErrReasonRequired)
	assert.Equal(t, 0, stub.count("rejectTask"))

	require.NoError(t, p.Reject(context.Background(), "duplicate job card"))
	assert.Equal(t, 1, stub.count("rejectTask"))
	assert.Equal(t, entities.StatusRejected, p.View().Task.Status)
}

func TestRejectDoesNotForceSave(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	require.NoError(t, p.SetNotes("scratch"))

	require.NoError(t, p.Reject(context.Background(), "wrong site"))
	assert.Equal(t, 0, stub.count("updateTask"))
}

func TestUploadRefetchesDetail(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	fetches := stub.count("getTaskDetail")

	att, err := p.Upload(context.Background(), backend.Upload{FileName: "site.jpg"})
	require.NoError(t, err)
	assert.Equal(t, entities.FileTypeImage, att.FileType)
	assert.Equal(t, fetches+1, stub.count("getTaskDetail"))
}

func TestDeleteAttachmentNeedsConfirm(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)

	assert.ErrorIs(t, p.DeleteAttachment(context.Background(), 5, false), ErrConfirmRequired)
	assert.Equal(t, 0, stub.count("deleteAttachment"))
	require.NoError(t, p.DeleteAttachment(context.Background(), 5, true))
	assert.Equal(t, 1, stub.count("deleteAttachment"))
}

func TestClosedPanelRefusesEverything(t *testing.T) {
	stub := newStub(freshDetail())
	mgr := NewManager(stub, nil)
	p, err := mgr.Open(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, mgr.Close(9))

	assert.ErrorIs(t, p.SetNotes("x"), ErrPanelClosed)
	_, err = p.AddLine()
	assert.ErrorIs(t, err, ErrPanelClosed)
	assert.ErrorIs(t, p.Save(context.Background()), ErrPanelClosed)
	assert.ErrorIs(t, p.Approve(context.Background(), true), ErrPanelClosed)
}

func TestManagerReusesOpenPanel(t *testing.T) {
	stub := newStub(freshDetail())
	mgr := NewManager(stub, nil)
	p1, err := mgr.Open(context.Background(), 9)
	require.NoError(t, err)
	p2, err := mgr.Open(context.Background(), 9)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, mgr.OpenCount())
}

func TestManagerOpenFailureNotRegistered(t *testing.T) {
	stub := newStub(freshDetail())
	stub.failOn["getTaskDetail"] = &backend.APIError{Op: "get task detail", StatusCode: 503, Message: "down"}
	mgr := NewManager(stub, nil)
	_, err := mgr.Open(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, 0, mgr.OpenCount())
}

func TestBusyPanelRejectsSecondMutation(t *testing.T) {
	stub := newStub(freshDetail())
	p := openPanel(t, stub)
	require.NoError(t, p.SetNotes("first"))

	stub.updateEntered = make(chan struct{}, 1)
	stub.updateRelease = make(chan struct{})

	saveErr := make(chan error, 1)
	go func() { saveErr <- p.Save(context.Background()) }()
	<-stub.updateEntered // first save is now mid-flight

	assert.ErrorIs(t, p.Save(context.Background()), ErrBusy,
		"second save must not start until the first resolves")
	assert.ErrorIs(t, p.SetNotes("second"), ErrBusy)
	_, err := p.AddLine()
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, p.View().Busy)

	close(stub.updateRelease)
	require.NoError(t, <-saveErr)
	assert.Equal(t, 1, stub.count("updateTask"), "the rejected save issued no calls")

	require.NoError(t, p.SetNotes("after"), "busy clears once the save resolves")
}

// memCache is a DetailCache for tests; the gorm-backed one has its own tests.
type memCache struct{ m map[int64]*entities.TaskDetail }

func newMemCache() *memCache { return &memCache{m: map[int64]*entities.TaskDetail{}} }

func (c *memCache) Put(taskID int64, d *entities.TaskDetail) error {
	c.m[taskID] = d
	return nil
}

func (c *memCache) Get(taskID int64) (*entities.TaskDetail, time.Time, error) {
	d, ok := c.m[taskID]
	if !ok {
		return nil, time.Time{}, errors.New("not cached")
	}
	return d, time.Now(), nil
}

func TestDetailFallsBackToCacheWhenBackendDown(t *testing.T) {
	stub := newStub(freshDetail())
	cache := newMemCache()
	mgr := NewManager(stub, cache)

	d, stale, err := mgr.Detail(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, int64(9), d.Task.ID)

	stub.failOn["getTaskDetail"] = &backend.APIError{Op: "get task detail", StatusCode: 503, Message: "down"}
	d, stale, err = mgr.Detail(context.Background(), 9)
	require.NoError(t, err, "cached copy serves while the backend is unreachable")
	assert.True(t, stale)
	assert.Equal(t, "call before arrival", d.Task.InternalNotes)
}

func TestDetailErrorWhenBackendDownAndNothingCached(t *testing.T) {
	stub := newStub(freshDetail())
	stub.failOn["getTaskDetail"] = &backend.APIError{Op: "get task detail", StatusCode: 503, Message: "down"}
	mgr := NewManager(stub, newMemCache())

	_, _, err := mgr.Detail(context.Background(), 9)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr, "no cache entry: the backend failure passes through")
	assert.Equal(t, 503, apiErr.StatusCode)
}

func TestOpenWritesThroughToCache(t *testing.T) {
	stub := newStub(freshDetail())
	cache := newMemCache()
	mgr := NewManager(stub, cache)

	_, err := mgr.Open(context.Background(), 9)
	require.NoError(t, err)
	cached, _, err := cache.Get(9)
	require.NoError(t, err, "a successful panel fetch populates the offline cache")
	assert.Equal(t, int64(9), cached.Task.ID)
}

func sp(v string) *string { return &v }
