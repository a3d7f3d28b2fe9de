package panel

import (
	"strings"

	"fieldops/entities"
)

// CommitOp is one backend call produced by diffing the draft against the
// server snapshot at save time.
type CommitOp struct {
	Create    bool  // false = update of an existing line
	LineID    int64 // persisted id, updates only
	Name      string
	Quantity  float64
	UnitCost  *float64
	TotalCost *float64
}

// Ledger owns the editable draft of one task's resource lines plus the
// snapshot taken at the last successful fetch. The snapshot is never shown;
// it exists only as the diff baseline.
type Ledger struct {
	draft    []entities.ResourceLine
	snapshot []entities.ResourceLine
	dirty    bool
}

// Reset loads a fresh server copy into both draft and snapshot and clears the
// dirty flag. Called on every successful detail fetch.
func (l *Ledger) Reset(lines []entities.ResourceLine) {
	l.draft = append([]entities.ResourceLine(nil), lines...)
	l.snapshot = append([]entities.ResourceLine(nil), lines...)
	l.dirty = false
}

func (l *Ledger) Draft() []entities.ResourceLine {
	return append([]entities.ResourceLine(nil), l.draft...)
}

func (l *Ledger) Dirty() bool { return l.dirty }

// Add appends an empty draft line with a synthetic non-positive id and
// returns that id. Synthetic ids never collide with server ids (> 0).
func (l *Ledger) Add() int64 {
	id := int64(0)
	for _, r := range l.draft {
		if r.ID < id {
			id = r.ID
		}
	}
	id--
	l.draft = append(l.draft, entities.ResourceLine{ID: id, Quantity: 1})
	l.dirty = true
	return id
}

func (l *Ledger) find(id int64) *entities.ResourceLine {
	for i := range l.draft {
		if l.draft[i].ID == id {
			return &l.draft[i]
		}
	}
	return nil
}

func (l *Ledger) SetName(id int64, name string) error {
	r := l.find(id)
	if r == nil {
		return ErrNoSuchLine
	}
	r.ResourceName = name
	l.dirty = true
	return nil
}

func (l *Ledger) SetQuantity(id int64, q float64) error {
	if q < 0 {
		return ErrInvalidQuantity
	}
	r := l.find(id)
	if r == nil {
		return ErrNoSuchLine
	}
	r.Quantity = q
	r.TotalCost = LineTotal(r.Quantity, r.UnitCost)
	l.dirty = true
	return nil
}

// SetUnitCost sets or clears (nil) a line's unit cost and recomputes its total.
func (l *Ledger) SetUnitCost(id int64, cost *float64) error {
	if cost != nil && *cost < 0 {
		return ErrInvalidUnitCost
	}
	r := l.find(id)
	if r == nil {
		return ErrNoSuchLine
	}
	r.UnitCost = cost
	r.TotalCost = LineTotal(r.Quantity, r.UnitCost)
	l.dirty = true
	return nil
}

// Persisted reports whether id names a line the server already knows about.
func (l *Ledger) Persisted(id int64) bool {
	if id <= 0 {
		return false
	}
	for _, r := range l.snapshot {
		if r.ID == id {
			return true
		}
	}
	return false
}

// removeLocal drops a line from the draft only. Used for synthetic lines and
// after a confirmed server-side delete has been re-fetched.
func (l *Ledger) removeLocal(id int64) error {
	for i := range l.draft {
		if l.draft[i].ID == id {
			l.draft = append(l.draft[:i], l.draft[i+1:]...)
			l.dirty = true
			return nil
		}
	}
	return ErrNoSuchLine
}

// DiffForCommit translates the draft into backend calls. Every persisted line
// is resent as an update (idempotent, no per-field dirty tracking); synthetic
// lines become creates only when named with a positive quantity, otherwise
// they are skipped silently.
func (l *Ledger) DiffForCommit() []CommitOp {
	var ops []CommitOp
	for _, r := range l.draft {
		total := LineTotal(r.Quantity, r.UnitCost)
		if l.Persisted(r.ID) {
			ops = append(ops, CommitOp{
				LineID:    r.ID,
				Name:      r.ResourceName,
				Quantity:  r.Quantity,
				UnitCost:  r.UnitCost,
				TotalCost: total,
			})
			continue
		}
		if r.ID <= 0 && strings.TrimSpace(r.ResourceName) != "" && r.Quantity > 0 {
			ops = append(ops, CommitOp{
				Create:    true,
				Name:      r.ResourceName,
				Quantity:  r.Quantity,
				UnitCost:  r.UnitCost,
				TotalCost: total,
			})
		}
	}
	return ops
}
