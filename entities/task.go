package entities

type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusApproved   TaskStatus = "approved"
	StatusRejected   TaskStatus = "rejected"
)

// Reviewable reports whether approve/reject may be requested.
// in_progress/completed are reached by other workflows; approved/rejected are terminal.
func (s TaskStatus) Reviewable() bool { return s == StatusOpen }

type Task struct {
	ID            int64      `json:"id"`
	Status        TaskStatus `json:"status"`
	InternalNotes string     `json:"internal_notes"`
	Date          string     `json:"date"` // YYYY-MM-DD
	Location      string     `json:"location"`
	AssigneeName  string     `json:"assignee_name"`
	ProjectName   string     `json:"project_name"`
}

// TaskDetail is the unit returned by a full detail fetch.
type TaskDetail struct {
	Task        Task            `json:"task"`
	Resources   []ResourceLine  `json:"resources"`
	Attachments []Attachment    `json:"attachments"`
	Activity    []ActivityEntry `json:"activity"`
}
