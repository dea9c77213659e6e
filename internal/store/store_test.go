package store

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Write report", Description: "Quarterly numbers", Priority: PriorityHigh, Deadline: "2026-09-15"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected task ID to be set")
	}
	if task.Version != 1 {
		t.Errorf("new task version = %d, want 1", task.Version)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Write report" || got.Priority != PriorityHigh || got.Deadline != "2026-09-15" {
		t.Errorf("got %+v, want the created task back", got)
	}
	if got.Status != StatusPending {
		t.Errorf("new task status = %q, want pending", got.Status)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Bare minimum"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != StatusPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTask(999)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("GetTask(999) error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTaskStatusBumpsVersion(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Versioned"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	ok, err := s.UpdateTaskStatus(task.ID, StatusInProgress, "picked up")
	if err != nil || !ok {
		t.Fatalf("UpdateTaskStatus = (%v, %v), want (true, nil)", ok, err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if len(got.Notes) != 1 || got.Notes[0].Content != "picked up" {
		t.Errorf("notes = %+v, want the transition note", got.Notes)
	}
}

func TestUpdateTaskStatusUnknownTask(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.UpdateTaskStatus(42, StatusBlocked, "")
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if ok {
		t.Error("expected false for unknown task")
	}
}

func TestUpdateTaskStatusInvalid(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.UpdateTaskStatus(1, TaskStatus("bogus"), ""); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestCompleteArchivesTask(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Finish me"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	ok, err := s.UpdateTaskStatus(task.ID, StatusCompleted, "done")
	if err != nil || !ok {
		t.Fatalf("UpdateTaskStatus = (%v, %v), want (true, nil)", ok, err)
	}

	active, err := s.ListActiveTasks()
	if err != nil {
		t.Fatalf("ListActiveTasks: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active tasks = %d, want 0 after completion", len(active))
	}

	archived, err := s.ListArchivedTasks()
	if err != nil {
		t.Fatalf("ListArchivedTasks: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("archived tasks = %d, want 1", len(archived))
	}
	if archived[0].CompletedAt == nil {
		t.Error("archived task has no CompletedAt")
	}

	// Lookup still resolves through the archive.
	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask after archive: %v", err)
	}
	if got.CompletedAt == nil {
		t.Error("GetTask should surface the archived copy with CompletedAt set")
	}
}

func TestCompleteFreesTimeBlocks(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Scheduled work"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	blocks := []TimeBlock{{StartTime: start, EndTime: start.Add(30 * time.Minute)}}
	if err := s.InsertBlocks(blocks); err != nil {
		t.Fatalf("InsertBlocks: %v", err)
	}
	listed, err := s.ListBlocksFrom(start.Add(-time.Hour))
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListBlocksFrom = (%d, %v), want 1 block", len(listed), err)
	}
	if err := s.AssignBlocks([]int64{listed[0].ID}, task.ID); err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}

	if _, err := s.UpdateTaskStatus(task.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}

	after, err := s.BlocksForTask(task.ID)
	if err != nil {
		t.Fatalf("BlocksForTask: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("task still holds %d blocks after completion", len(after))
	}
	freed, err := s.ListBlocksFrom(start.Add(-time.Hour))
	if err != nil || len(freed) != 1 {
		t.Fatalf("ListBlocksFrom = (%d, %v)", len(freed), err)
	}
	if freed[0].Status != BlockAvailable || freed[0].TaskID != nil {
		t.Errorf("block not released: %+v", freed[0])
	}
}

func TestDecomposeGoal(t *testing.T) {
	s := newTestStore(t)

	parentID, err := s.DecomposeGoal("Launch newsletter", "End to end", []Subtask{
		{Title: "Pick platform"},
		{Title: "Draft first issue", Priority: PriorityHigh},
	})
	if err != nil {
		t.Fatalf("DecomposeGoal: %v", err)
	}

	parent, err := s.GetTask(parentID)
	if err != nil {
		t.Fatalf("GetTask(parent): %v", err)
	}
	if parent.Priority != PriorityHigh {
		t.Errorf("parent priority = %q, want high", parent.Priority)
	}
	if len(parent.Subtasks) != 2 {
		t.Fatalf("parent has %d subtasks, want 2", len(parent.Subtasks))
	}

	child, err := s.GetTask(parent.Subtasks[0])
	if err != nil {
		t.Fatalf("GetTask(child): %v", err)
	}
	if child.ParentID == nil || *child.ParentID != parentID {
		t.Errorf("child parent_id = %v, want %d", child.ParentID, parentID)
	}
	if child.Priority != PriorityMedium {
		t.Errorf("child default priority = %q, want medium", child.Priority)
	}
}

func TestAddDependency(t *testing.T) {
	s := newTestStore(t)

	a := &Task{Title: "A"}
	b := &Task{Title: "B"}
	for _, task := range []*Task{a, b} {
		if err := s.CreateTask(task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	ok, err := s.AddDependency(a.ID, b.ID)
	if err != nil || !ok {
		t.Fatalf("AddDependency = (%v, %v), want (true, nil)", ok, err)
	}

	// Unknown ids are reported, not errors.
	ok, err = s.AddDependency(a.ID, 999)
	if err != nil {
		t.Fatalf("AddDependency unknown: %v", err)
	}
	if ok {
		t.Error("expected false for unknown dependency target")
	}

	got, err := s.GetTask(a.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != b.ID {
		t.Errorf("dependencies = %v, want [%d]", got.Dependencies, b.ID)
	}

	// Listing loads dependency links too.
	tasks, err := s.ListActiveTasks()
	if err != nil {
		t.Fatalf("ListActiveTasks: %v", err)
	}
	for _, task := range tasks {
		if task.ID == a.ID && len(task.Dependencies) != 1 {
			t.Errorf("listed task %d dependencies = %v", task.ID, task.Dependencies)
		}
	}
}

func TestAddNote(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "Noted"}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	ok, err := s.AddNote(task.ID, "first observation")
	if err != nil || !ok {
		t.Fatalf("AddNote = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.AddNote(999, "nope")
	if err != nil {
		t.Fatalf("AddNote unknown: %v", err)
	}
	if ok {
		t.Error("expected false for unknown task")
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.Notes) != 1 || got.Notes[0].Content != "first observation" {
		t.Errorf("notes = %+v", got.Notes)
	}
	if got.Version != 2 {
		t.Errorf("version after note = %d, want 2", got.Version)
	}
}

func TestInsertBlocksIdempotent(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	blocks := []TimeBlock{
		{StartTime: start, EndTime: start.Add(30 * time.Minute)},
		{StartTime: start.Add(30 * time.Minute), EndTime: start.Add(time.Hour)},
	}
	if err := s.InsertBlocks(blocks); err != nil {
		t.Fatalf("InsertBlocks: %v", err)
	}
	if err := s.InsertBlocks(blocks); err != nil {
		t.Fatalf("InsertBlocks again: %v", err)
	}

	listed, err := s.ListBlocksFrom(start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListBlocksFrom: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("blocks = %d, want 2 (duplicates ignored)", len(listed))
	}
}

func TestBlockAt(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if err := s.InsertBlocks([]TimeBlock{{StartTime: start, EndTime: start.Add(30 * time.Minute)}}); err != nil {
		t.Fatalf("InsertBlocks: %v", err)
	}

	b, err := s.BlockAt(start.Add(10 * time.Minute))
	if err != nil {
		t.Fatalf("BlockAt: %v", err)
	}
	if b == nil {
		t.Fatal("expected a covering block")
	}

	b, err = s.BlockAt(start.Add(time.Hour))
	if err != nil {
		t.Fatalf("BlockAt miss: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil outside any block, got %+v", b)
	}
}

func TestDeleteBlocksBefore(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if err := s.InsertBlocks([]TimeBlock{
		{StartTime: start, EndTime: start.Add(30 * time.Minute)},
		{StartTime: start.Add(time.Hour), EndTime: start.Add(90 * time.Minute)},
	}); err != nil {
		t.Fatalf("InsertBlocks: %v", err)
	}

	n, err := s.DeleteBlocksBefore(start.Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteBlocksBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestLastIdleRunsSkipsSimulated(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	entries := []*LogEntry{
		{ActionType: ActionIdle, ActionName: "scan_news", CreatedAt: base},
		{ActionType: ActionIdle, ActionName: "scan_news", CreatedAt: base.Add(time.Hour), Simulated: true},
		{ActionType: ActionIdle, ActionName: "tidy_notes", CreatedAt: base.Add(-time.Hour)},
		{ActionType: ActionTask, ActionName: "scan_news", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if err := s.AppendLog(e); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	last, err := s.LastIdleRuns()
	if err != nil {
		t.Fatalf("LastIdleRuns: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(last), last)
	}
	if !last["scan_news"].Equal(base) {
		t.Errorf("scan_news last run = %v, want %v (simulated run must not count)", last["scan_news"], base)
	}
}

func TestListLogNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		e := &LogEntry{ActionType: ActionTask, ActionName: "t", InvocationID: "inv"}
		if err := s.AppendLog(e); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	entries, err := s.ListLog(2)
	if err != nil {
		t.Fatalf("ListLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want limit 2", len(entries))
	}
	if entries[0].ID < entries[1].ID {
		t.Error("log should be newest first")
	}
}
