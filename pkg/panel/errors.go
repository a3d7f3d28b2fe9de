package panel

import "errors"

var (
	ErrBusy            = errors.New("another operation is in progress")
	ErrPanelClosed     = errors.New("panel is closed")
	ErrNoSuchLine      = errors.New("no such resource line")
	ErrConfirmRequired = errors.New("confirmation required")
	ErrMissingCosts    = errors.New("one or more lines have no unit cost")
	ErrReasonRequired  = errors.New("rejection reason is required")
	ErrNotReviewable   = errors.New("task is not open for review")
	ErrInvalidQuantity = errors.New("quantity must be non-negative")
	ErrInvalidUnitCost = errors.New("unit cost must be non-negative")
)
