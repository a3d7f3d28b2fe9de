package panel

import (
	"context"
	"log"
	"strings"
	"sync"

	"fieldops/entities"
	"fieldops/pkg/backend"
	"fieldops/pkg/offline/repository"
)

// Panel is one operator's open session on a task: the editable ledger draft,
// the notes draft, attachments and activity as last fetched, and the approval
// controls. A panel is owned by exactly one open dashboard view; closing it
// discards the draft.
type Panel struct {
	mu     sync.Mutex
	taskID int64
	api    backend.Client
	cache  repository.DetailCache // may be nil

	task        entities.Task
	notes       string
	notesDirty  bool
	ledger      Ledger
	attachments []entities.Attachment
	activity    []entities.ActivityEntry

	busy   bool // one in-flight mutation at a time; the only concurrency control
	closed bool
}

func newPanel(taskID int64, api backend.Client, cache repository.DetailCache) *Panel {
	return &Panel{taskID: taskID, api: api, cache: cache}
}

func (p *Panel) TaskID() int64 { return p.taskID }

// LinePatch carries the editable fields of one draft line. ClearUnitCost
// distinguishes "remove the cost" from "leave it alone".
type LinePatch struct {
	Name          *string  `json:"name"`
	Quantity      *float64 `json:"quantity"`
	UnitCost      *float64 `json:"unit_cost"`
	ClearUnitCost bool     `json:"clear_unit_cost"`
}

type LedgerView struct {
	Lines        []entities.ResourceLine `json:"lines"`
	Total        float64                 `json:"total"`
	MissingCosts bool                    `json:"missing_costs"`
}

type View struct {
	Task        entities.Task            `json:"task"`
	Notes       string                   `json:"internal_notes"`
	Ledger      LedgerView               `json:"ledger"`
	Attachments []entities.Attachment    `json:"attachments"`
	Activity    []entities.ActivityEntry `json:"activity"`
	Dirty       bool                     `json:"dirty"`
	Busy        bool                     `json:"busy"`
}

func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := p.ledger.Draft()
	return View{
		Task:        p.task,
		Notes:       p.notes,
		Ledger:      LedgerView{Lines: lines, Total: LedgerTotal(lines), MissingCosts: HasMissingCosts(lines)},
		Attachments: append([]entities.Attachment(nil), p.attachments...),
		Activity:    append([]entities.ActivityEntry(nil), p.activity...),
		Dirty:       p.dirtyLocked(),
		Busy:        p.busy,
	}
}

func (p *Panel) dirtyLocked() bool { return p.notesDirty || p.ledger.Dirty() }

func (p *Panel) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirtyLocked()
}

// begin claims the busy flag, failing fast when another mutation is in
// flight. Every claim must be paired with end.
func (p *Panel) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	if p.busy {
		return ErrBusy
	}
	p.busy = true
	return nil
}

func (p *Panel) end() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// editable guards draft edits: no edits on a closed panel or while a save,
// review or delete is still running.
func (p *Panel) editable() error {
	if p.closed {
		return ErrPanelClosed
	}
	if p.busy {
		return ErrBusy
	}
	return nil
}

// Refresh is the sole read path. It repopulates every piece of panel state
// from one detail fetch so ledger, attachments, activity and notes stay
// mutually consistent, and clears the dirty flag.
func (p *Panel) Refresh(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()
	return p.refetch(ctx)
}

func (p *Panel) refetch(ctx context.Context) error {
	d, err := p.api.GetTaskDetail(ctx, p.taskID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		// panel went away mid-flight; drop the response
		return ErrPanelClosed
	}
	p.task = d.Task
	p.notes = d.Task.InternalNotes
	p.notesDirty = false
	p.ledger.Reset(d.Resources)
	p.attachments = append([]entities.Attachment(nil), d.Attachments...)
	p.activity = append([]entities.ActivityEntry(nil), d.Activity...)
	if p.cache != nil {
		if err := p.cache.Put(p.taskID, d); err != nil {
			log.Printf("detail cache write for task %d: %v", p.taskID, err)
		}
	}
	return nil
}

func (p *Panel) SetNotes(notes string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.editable(); err != nil {
		return err
	}
	p.notes = notes
	p.notesDirty = true
	return nil
}

// AddLine appends an empty draft line and returns its synthetic id.
func (p *Panel) AddLine() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.editable(); err != nil {
		return 0, err
	}
	return p.ledger.Add(), nil
}

func (p *Panel) UpdateLine(lineID int64, patch LinePatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.editable(); err != nil {
		return err
	}
	if patch.Name != nil {
		if err := p.ledger.SetName(lineID, *patch.Name); err != nil {
			return err
		}
	}
	if patch.Quantity != nil {
		if err := p.ledger.SetQuantity(lineID, *patch.Quantity); err != nil {
			return err
		}
	}
	if patch.UnitCost != nil || patch.ClearUnitCost {
		cost := patch.UnitCost
		if patch.ClearUnitCost {
			cost = nil
		}
		if err := p.ledger.SetUnitCost(lineID, cost); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLine drops a draft-only line locally with no backend call. Removing a
// persisted line requires confirm and deletes on the backend immediately,
// followed by a full re-fetch.
func (p *Panel) RemoveLine(ctx context.Context, lineID int64, confirm bool) error {
	p.mu.Lock()
	if err := p.editable(); err != nil {
		p.mu.Unlock()
		return err
	}
	if !p.ledger.Persisted(lineID) {
		err := p.ledger.removeLocal(lineID)
		p.mu.Unlock()
		return err
	}
	if !confirm {
		p.mu.Unlock()
		return ErrConfirmRequired
	}
	p.busy = true
	p.mu.Unlock()
	defer p.end()
	if err := p.api.DeleteResourceLine(ctx, p.taskID, lineID); err != nil {
		return err
	}
	return p.refetch(ctx)
}

// Save persists the notes draft, then replays the ledger diff, then
// re-fetches. A no-op when nothing has been touched. On any failure the draft
// and dirty flag survive so the operator can retry; sub-operations already
// applied server-side are not rolled back.
func (p *Panel) Save(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()
	return p.doSave(ctx)
}

func (p *Panel) doSave(ctx context.Context) error {
	p.mu.Lock()
	if !p.dirtyLocked() {
		p.mu.Unlock()
		return nil
	}
	notes := p.notes
	ops := p.ledger.DiffForCommit()
	p.mu.Unlock()

	if _, err := p.api.UpdateTask(ctx, p.taskID, backend.TaskPatch{InternalNotes: &notes}); err != nil {
		return err
	}
	for _, op := range ops {
		in := backend.ResourceInput{
			ResourceName: op.Name,
			Quantity:     op.Quantity,
			UnitCost:     op.UnitCost,
			TotalCost:    op.TotalCost,
		}
		var err error
		if op.Create {
			_, err = p.api.CreateResourceLine(ctx, p.taskID, in)
		} else {
			_, err = p.api.UpdateResourceLine(ctx, p.taskID, op.LineID, in)
		}
		if err != nil {
			return err
		}
	}
	return p.refetch(ctx)
}

// Approve saves first when dirty and only then requests the transition, so
// approval never fires against unsaved resource data. Missing unit costs are
// a warning the operator must acknowledge, not an error.
func (p *Panel) Approve(ctx context.Context, acknowledgeMissingCosts bool) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	p.mu.Lock()
	if !p.task.Status.Reviewable() {
		p.mu.Unlock()
		return ErrNotReviewable
	}
	if HasMissingCosts(p.ledger.draft) && !acknowledgeMissingCosts {
		p.mu.Unlock()
		return ErrMissingCosts
	}
	p.mu.Unlock()

	if err := p.doSave(ctx); err != nil {
		return err
	}
	if _, err := p.api.ApproveTask(ctx, p.taskID); err != nil {
		return err
	}
	return p.refetch(ctx)
}

// Reject requires a non-empty reason and does not force a save; rejection
// does not depend on resource-cost accuracy.
func (p *Panel) Reject(ctx context.Context, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	p.mu.Lock()
	if !p.task.Status.Reviewable() {
		p.mu.Unlock()
		return ErrNotReviewable
	}
	p.mu.Unlock()

	if _, err := p.api.RejectTask(ctx, p.taskID, reason); err != nil {
		return err
	}
	return p.refetch(ctx)
}

// Upload sends the file to the backend immediately (attachments are never
// buffered like ledger lines) and re-fetches so the activity feed picks up
// the upload event.
func (p *Panel) Upload(ctx context.Context, up backend.Upload) (*entities.Attachment, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.end()
	att, err := p.api.UploadAttachment(ctx, p.taskID, up)
	if err != nil {
		return nil, err
	}
	if err := p.refetch(ctx); err != nil {
		return nil, err
	}
	return att, nil
}

func (p *Panel) DeleteAttachment(ctx context.Context, attachmentID int64, confirm bool) error {
	if !confirm {
		return ErrConfirmRequired
	}
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()
	if err := p.api.DeleteAttachment(ctx, p.taskID, attachmentID); err != nil {
		return err
	}
	return p.refetch(ctx)
}

// Close discards the draft. In-flight responses observed after Close are
// dropped instead of mutating a dead panel.
func (p *Panel) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
