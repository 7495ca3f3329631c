package queue

import "time"

// ItemType distinguishes the two kinds of queue items.
type ItemType string

const (
	TypeExecute ItemType = "execute"
	TypeEnd     ItemType = "end"
)

// ItemStatus is the lifecycle stage of one enqueued command.
type ItemStatus string

const (
	StatusQueued     ItemStatus = "queued"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusFailed     ItemStatus = "failed"
)

// ExecutionResult is what the session reports back for one command.
type ExecutionResult struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	State     map[string]interface{} `json:"state,omitempty"`
	Artifacts map[string]string      `json:"artifacts,omitempty"`
}

// Item is one enqueued automation command. The Manager owns an item
// until it moves into the completed history.
type Item struct {
	ID           string           `json:"id"`
	Type         ItemType         `json:"type"`
	Command      []string         `json:"command,omitempty"`
	QuickCleanup bool             `json:"quickCleanup,omitempty"`
	Status       ItemStatus       `json:"status"`
	QueuedAt     time.Time        `json:"queuedAt"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
	Result       *ExecutionResult `json:"result,omitempty"`
}
