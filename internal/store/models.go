package store

import "time"

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// TaskPriority represents the author-supplied priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task represents a unit of autonomous work
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	// Deadline is a calendar date in YYYY-MM-DD form, empty when unset.
	// Kept as text so malformed values degrade at scoring time instead of
	// failing the whole prioritization pass.
	Deadline     string     `json:"deadline,omitempty"`
	ParentID     *int64     `json:"parent_id,omitempty"`
	Subtasks     []int64    `json:"subtasks,omitempty"`
	Dependencies []int64    `json:"dependencies,omitempty"`
	Notes        []Note     `json:"notes,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Note is one entry in a task's append-only audit trail
type Note struct {
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
}

// Subtask describes a child task created during goal decomposition
type Subtask struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
}

// BlockStatus represents the state of a calendar time block
type BlockStatus string

const (
	BlockAvailable BlockStatus = "available"
	BlockScheduled BlockStatus = "scheduled"
)

// TimeBlock is a fixed-duration calendar slot that may hold at most one task
type TimeBlock struct {
	ID        int64       `json:"id"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	TaskID    *int64      `json:"task_id,omitempty"`
	Status    BlockStatus `json:"status"`
}

// ActionType categorizes execution log entries
type ActionType string

const (
	ActionTask       ActionType = "task"
	ActionIdle       ActionType = "idle"
	ActionEscalation ActionType = "escalation"
)

// LogEntry is an append-only record of a dispatched (or simulated) action.
// Entries are never mutated or deleted by the engine.
type LogEntry struct {
	ID           int64      `json:"id"`
	InvocationID string     `json:"invocation_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ActionType   ActionType `json:"action_type"`
	ActionName   string     `json:"action_name"`
	Details      string     `json:"details,omitempty"`
	Simulated    bool       `json:"simulated"`
}
