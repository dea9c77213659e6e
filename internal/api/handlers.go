package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gabmichels/chloe-engine/internal/engine"
	"github.com/gabmichels/chloe-engine/internal/rhythm"
	"github.com/gabmichels/chloe-engine/internal/scoring"
	"github.com/gabmichels/chloe-engine/internal/store"
	"github.com/gabmichels/chloe-engine/internal/version"
)

// HealthCheck handles GET /api/v1/health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
	})
}

// ListTasks handles GET /api/v1/tasks; ?archived=true lists the archive
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []*store.Task
	var err error
	if r.URL.Query().Get("archived") == "true" {
		tasks, err = s.store.ListArchivedTasks()
	} else {
		tasks, err = s.store.ListActiveTasks()
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch tasks", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// CreateTask handles POST /api/v1/tasks
func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Title == "" {
		s.errorResponse(w, http.StatusBadRequest, "Title is required", nil)
		return
	}
	priority := store.TaskPriority(req.Priority)
	if req.Priority == "" {
		priority = store.PriorityMedium
	} else if !priority.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid priority", nil)
		return
	}

	task := &store.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Deadline:    req.Deadline,
		ParentID:    req.ParentID,
	}
	if err := s.store.CreateTask(task); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create task", err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/{id}
func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	task, err := s.store.GetTask(id)
	if errors.Is(err, store.ErrTaskNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Task not found", err)
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch task", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, task)
}

// UpdateTask handles PUT /api/v1/tasks/{id}
func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	task, err := s.store.GetTask(id)
	if errors.Is(err, store.ErrTaskNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Task not found", err)
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch task", err)
		return
	}
	if task.CompletedAt != nil {
		s.errorResponse(w, http.StatusConflict, "Archived tasks are immutable", nil)
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Priority != "" {
		priority := store.TaskPriority(req.Priority)
		if !priority.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Invalid priority", nil)
			return
		}
		task.Priority = priority
	}
	if req.Deadline != "" {
		task.Deadline = req.Deadline
	}

	if err := s.store.UpdateTask(task); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update task", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, task)
}

// UpdateTaskStatus handles POST /api/v1/tasks/{id}/status
func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := store.TaskStatus(req.Status)
	if !status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}

	updated, err := s.store.UpdateTaskStatus(id, status, req.Note)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	if !updated {
		s.errorResponse(w, http.StatusNotFound, "Task not found", nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// AddNote handles POST /api/v1/tasks/{id}/notes
func (s *Server) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Content == "" {
		s.errorResponse(w, http.StatusBadRequest, "Content is required", nil)
		return
	}

	added, err := s.store.AddNote(id, req.Content)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to add note", err)
		return
	}
	if !added {
		s.errorResponse(w, http.StatusNotFound, "Task not found", nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// AddDependency handles POST /api/v1/tasks/{id}/dependencies
func (s *Server) AddDependency(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req DependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	added, err := s.store.AddDependency(id, req.DependsOnID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to add dependency", err)
		return
	}
	if !added {
		s.errorResponse(w, http.StatusNotFound, "Task or dependency not found", nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// RescheduleTask handles POST /api/v1/tasks/{id}/reschedule
func (s *Server) RescheduleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	when := day.Add(time.Duration(req.Hour)*time.Hour + time.Duration(req.Minute)*time.Minute)

	moved, err := s.calendar.RescheduleTask(id, when)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to reschedule", err)
		return
	}
	if !moved {
		s.errorResponse(w, http.StatusConflict, "No available block to move the task into", nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

// DecomposeGoal handles POST /api/v1/goals
func (s *Server) DecomposeGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		s.errorResponse(w, http.StatusBadRequest, "Title is required", nil)
		return
	}
	if len(req.Subtasks) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "At least one subtask is required", nil)
		return
	}

	subtasks := make([]store.Subtask, len(req.Subtasks))
	for i, sub := range req.Subtasks {
		if sub.Title == "" {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("Subtask %d needs a title", i+1), nil)
			return
		}
		subtasks[i] = store.Subtask{
			Title:       sub.Title,
			Description: sub.Description,
			Priority:    store.TaskPriority(sub.Priority),
		}
	}

	parentID, err := s.store.DecomposeGoal(req.Title, req.Description, subtasks)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to decompose goal", err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, GoalResponse{ParentID: parentID, Subtasks: len(subtasks)})
}

// GetPriorities handles GET /api/v1/priorities
func (s *Server) GetPriorities(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	tasks, err := s.store.ListActiveTasks()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch tasks", err)
		return
	}

	now := time.Now()
	scored := scoring.Prioritize(tasks, rhythm.Today(now), limit, now)

	resp := PrioritiesResponse{Tasks: make([]PriorityEntry, len(scored)), Total: len(scored)}
	for i, st := range scored {
		resp.Tasks[i] = PriorityEntry{Task: st.Task, Score: st.Score}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// RunDecision handles POST /api/v1/run. The call blocks for the duration of
// the dispatch; clients bound it through the request context.
func (s *Server) RunDecision(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Mode == "" {
		req.Mode = string(engine.ModeSimulation)
	}
	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result := s.engine.Run(r.Context(), mode)
	s.jsonResponse(w, http.StatusOK, result)
}

// AutoSchedule handles POST /api/v1/schedule/auto
func (s *Server) AutoSchedule(w http.ResponseWriter, r *http.Request) {
	req := AutoScheduleRequest{DaysAhead: 7}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if req.DaysAhead < 1 {
		s.errorResponse(w, http.StatusBadRequest, "days_ahead must be >= 1", nil)
		return
	}

	summary, err := s.calendar.AutoSchedule(req.DaysAhead)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to auto-schedule", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, summary)
}

// TodaysSchedule handles GET /api/v1/schedule/today
func (s *Server) TodaysSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := s.calendar.TodaysSchedule()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch schedule", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

// CurrentTask handles GET /api/v1/schedule/current
func (s *Server) CurrentTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.calendar.CurrentTask()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to resolve current task", err)
		return
	}
	if task == nil {
		s.jsonResponse(w, http.StatusOK, SuccessResponse{Success: true, Message: "No task scheduled right now"})
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// GetLog handles GET /api/v1/log
func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := s.store.ListLog(limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch log", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, LogResponse{Entries: entries, Total: len(entries)})
}

// Helper functions

func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid task ID", err)
		return 0, false
	}
	return id, true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	s.jsonResponse(w, status, resp)
}
