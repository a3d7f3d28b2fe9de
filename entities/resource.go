package entities

// ResourceLine is one row of a task's resource ledger. Lines created in the
// panel carry a non-positive id until the backend assigns a real one.
type ResourceLine struct {
	ID           int64    `json:"id"`
	ResourceName string   `json:"resource_name"`
	Quantity     float64  `json:"quantity"`
	UnitCost     *float64 `json:"unit_cost"`  // nil = cost not entered yet, not zero
	TotalCost    *float64 `json:"total_cost"` // nil whenever UnitCost is nil
}

func (r ResourceLine) Persisted() bool { return r.ID > 0 }
