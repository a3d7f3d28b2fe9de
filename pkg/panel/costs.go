package panel

import "fieldops/entities"

// LineTotal returns quantity * unitCost, or nil when no unit cost has been
// entered. A missing cost must never render as zero.
func LineTotal(quantity float64, unitCost *float64) *float64 {
	if unitCost == nil {
		return nil
	}
	t := quantity * *unitCost
	return &t
}

// LedgerTotal sums line totals across the ledger. Costless lines contribute 0
// to the sum; the sum itself is always a number.
func LedgerTotal(lines []entities.ResourceLine) float64 {
	var sum float64
	for _, l := range lines {
		if t := LineTotal(l.Quantity, l.UnitCost); t != nil {
			sum += *t
		}
	}
	return sum
}

// HasMissingCosts reports whether any line lacks a unit cost. This is a
// warning, not a validation error: approval may proceed once the operator
// acknowledges it.
func HasMissingCosts(lines []entities.ResourceLine) bool {
	for _, l := range lines {
		if l.UnitCost == nil {
			return true
		}
	}
	return false
}
