package api

import (
	"github.com/gabmichels/chloe-engine/internal/store"
)

// TaskRequest represents a task creation/update request
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
}

// StatusRequest transitions a task's status
type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// NoteRequest appends to a task's audit trail
type NoteRequest struct {
	Content string `json:"content"`
}

// DependencyRequest links a task to a prerequisite
type DependencyRequest struct {
	DependsOnID int64 `json:"depends_on_id"`
}

// RescheduleRequest moves a task near a requested instant
type RescheduleRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// GoalRequest decomposes a goal into a parent task plus subtasks
type GoalRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Subtasks    []SubtaskRequest `json:"subtasks"`
}

// SubtaskRequest is one child task inside a goal request
type SubtaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// GoalResponse reports the created goal
type GoalResponse struct {
	ParentID int64 `json:"parent_id"`
	Subtasks int   `json:"subtasks"`
}

// TaskListResponse represents a list of tasks
type TaskListResponse struct {
	Tasks []*store.Task `json:"tasks"`
	Total int           `json:"total"`
}

// PriorityEntry is one scored task in a priorities response
type PriorityEntry struct {
	Task  *store.Task `json:"task"`
	Score float64     `json:"score"`
}

// PrioritiesResponse lists the prioritized candidates
type PrioritiesResponse struct {
	Tasks []PriorityEntry `json:"tasks"`
	Total int             `json:"total"`
}

// RunRequest selects the execution mode for a decision invocation
type RunRequest struct {
	Mode string `json:"mode"`
}

// AutoScheduleRequest overrides the configured scheduling horizon
type AutoScheduleRequest struct {
	DaysAhead int `json:"days_ahead,omitempty"`
}

// LogResponse lists execution log entries
type LogResponse struct {
	Entries []*store.LogEntry `json:"entries"`
	Total   int               `json:"total"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
