package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gabmichels/chloe-engine/internal/calendar"
	"github.com/gabmichels/chloe-engine/internal/engine"
	"github.com/gabmichels/chloe-engine/internal/idle"
	"github.com/gabmichels/chloe-engine/internal/store"
)

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, instructions string) (string, error) {
	return "ok", nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cal := calendar.New(st, calendar.DefaultConfig())
	selector := idle.New(st, rand.New(rand.NewSource(1)))
	eng := engine.New(st, stubExecutor{}, selector, nil)

	return NewServer(st, cal, eng), st
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" {
		t.Errorf("health status = %q", resp.Status)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks", TaskRequest{
		Title:    "Write launch notes",
		Priority: "high",
		Deadline: "2026-09-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created store.Task
	decode(t, rec, &created)
	if created.ID == 0 || created.Priority != store.PriorityHigh {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/tasks/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got store.Task
	decode(t, rec, &got)
	if got.Title != "Write launch notes" {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks", TaskRequest{Priority: "high"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks", TaskRequest{Title: "x", Priority: "urgent"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad priority status = %d", rec.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/tasks/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/tasks/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestStatusTransitionAndArchiveListing(t *testing.T) {
	srv, st := newTestServer(t)

	task := &store.Task{Title: "Short-lived"}
	if err := st.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/status", StatusRequest{Status: "completed", Note: "done"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status transition = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/tasks?archived=true", nil)
	var list TaskListResponse
	decode(t, rec, &list)
	if list.Total != 1 {
		t.Errorf("archived total = %d, want 1", list.Total)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/tasks", nil)
	decode(t, rec, &list)
	if list.Total != 0 {
		t.Errorf("active total = %d, want 0", list.Total)
	}
}

func TestStatusValidation(t *testing.T) {
	srv, st := newTestServer(t)
	if err := st.CreateTask(&store.Task{Title: "t"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/status", StatusRequest{Status: "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks/99/status", StatusRequest{Status: "blocked"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown task status = %d, want 404", rec.Code)
	}
}

func TestNotesAndDependencies(t *testing.T) {
	srv, st := newTestServer(t)
	for _, title := range []string{"A", "B"} {
		if err := st.CreateTask(&store.Task{Title: title}); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/notes", NoteRequest{Content: "observation"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add note = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/notes", NoteRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty note = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/dependencies", DependencyRequest{DependsOnID: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add dependency = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/tasks/1/dependencies", DependencyRequest{DependsOnID: 99})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown dependency = %d, want 404", rec.Code)
	}
}

func TestDecomposeGoal(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/goals", GoalRequest{
		Title: "Launch the newsletter",
		Subtasks: []SubtaskRequest{
			{Title: "Pick a platform"},
			{Title: "Draft issue one", Priority: "high"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp GoalResponse
	decode(t, rec, &resp)
	if resp.Subtasks != 2 {
		t.Errorf("subtasks = %d, want 2", resp.Subtasks)
	}

	parent, err := st.GetTask(resp.ParentID)
	if err != nil {
		t.Fatalf("GetTask(parent): %v", err)
	}
	if len(parent.Subtasks) != 2 {
		t.Errorf("parent subtasks = %v", parent.Subtasks)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/goals", GoalRequest{Title: "No subtasks"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty subtasks = %d, want 400", rec.Code)
	}
}

func TestGetPriorities(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.CreateTask(&store.Task{Title: "High", Priority: store.PriorityHigh}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := st.CreateTask(&store.Task{Title: "Low", Priority: store.PriorityLow}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/priorities", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp PrioritiesResponse
	decode(t, rec, &resp)
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Tasks[0].Task.Title != "High" {
		t.Errorf("top task = %q", resp.Tasks[0].Task.Title)
	}
	if resp.Tasks[0].Score < resp.Tasks[1].Score {
		t.Error("scores must be descending")
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/priorities?limit=1", nil)
	decode(t, rec, &resp)
	if resp.Total != 1 {
		t.Errorf("limited total = %d, want 1", resp.Total)
	}
}

func TestRunDecisionSimulated(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.CreateTask(&store.Task{Title: "Candidate", Priority: store.PriorityHigh}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/run", RunRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result engine.Result
	decode(t, rec, &result)
	if result.Mode != engine.ModeSimulation {
		t.Errorf("default mode = %q, want simulation", result.Mode)
	}
	if result.Action != engine.ActionTask {
		t.Errorf("action = %q", result.Action)
	}

	// The simulated run must not have started the task.
	task, err := st.GetTask(1)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != store.StatusPending {
		t.Errorf("status = %q after simulation", task.Status)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/run", RunRequest{Mode: "yolo"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", rec.Code)
	}
}

func TestAutoScheduleAndToday(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.CreateTask(&store.Task{Title: "Schedulable", Priority: store.PriorityHigh}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/schedule/auto", AutoScheduleRequest{DaysAhead: 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("auto schedule = %d: %s", rec.Code, rec.Body.String())
	}
	var summary calendar.Summary
	decode(t, rec, &summary)
	if summary.TotalBlocks == 0 {
		t.Error("expected generated blocks over a 7-day horizon")
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/schedule/today", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("today = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/schedule/auto", AutoScheduleRequest{DaysAhead: -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad horizon = %d, want 400", rec.Code)
	}
}

func TestGetLog(t *testing.T) {
	srv, st := newTestServer(t)

	if err := st.AppendLog(&store.LogEntry{ActionType: store.ActionIdle, ActionName: "scan_news"}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/log", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp LogResponse
	decode(t, rec, &resp)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}
