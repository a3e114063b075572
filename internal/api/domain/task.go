package domain

import "time"

// TaskStatus is the delete task state.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// DeleteTask is the persisted form of a queued delete. Callbacks are kept elsewhere.
type DeleteTask struct {
	ID          string     `json:"id"`
	FileID      string     `json:"fileId"`
	FileInfo    FileRecord `json:"fileInfo"`
	Retries     int        `json:"retries"`
	CreatedAt   time.Time  `json:"createdAt"`
	Status      TaskStatus `json:"status"`
	LastError   string     `json:"lastError,omitempty"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
}

// Resumable reports whether a reloaded task may be processed again.
func (t DeleteTask) Resumable(maxRetries int) bool {
	if t.Retries >= maxRetries {
		return false
	}
	return t.Status == TaskPending || t.Status == TaskProcessing
}
