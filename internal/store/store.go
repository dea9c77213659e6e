package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrTaskNotFound is returned by lookups for ids that exist in neither the
// active set nor the archive.
var ErrTaskNotFound = errors.New("task not found")

// Store wraps the SQLite database holding tasks, the calendar and the
// execution log. All mutations run inside transactions so concurrent
// invocations of the engine cannot lose updates.
type Store struct {
	conn *sql.DB
}

// New opens (creating if necessary) the database at dbPath
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		deadline TEXT NOT NULL DEFAULT '',
		parent_id INTEGER,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS archived_tasks (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'completed',
		priority TEXT NOT NULL DEFAULT 'medium',
		deadline TEXT NOT NULL DEFAULT '',
		parent_id INTEGER,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		content TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_notes_task_id ON task_notes(task_id);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id INTEGER NOT NULL,
		depends_on_id INTEGER NOT NULL,
		PRIMARY KEY (task_id, depends_on_id)
	);

	CREATE TABLE IF NOT EXISTS time_blocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_time DATETIME NOT NULL UNIQUE,
		end_time DATETIME NOT NULL,
		task_id INTEGER,
		status TEXT NOT NULL DEFAULT 'available'
	);

	CREATE INDEX IF NOT EXISTS idx_time_blocks_start ON time_blocks(start_time);

	CREATE TABLE IF NOT EXISTS execution_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invocation_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		action_type TEXT NOT NULL,
		action_name TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		simulated INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_execution_log_action ON execution_log(action_type, action_name);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// CreateTask inserts a new task into the active set. The task's ID,
// CreatedAt and UpdatedAt are filled in on success.
func (s *Store) CreateTask(task *Task) error {
	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Version = 1

	result, err := s.conn.Exec(`
		INSERT INTO tasks (title, description, status, priority, deadline, parent_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.Title, task.Description, task.Status, task.Priority, task.Deadline, task.ParentID, task.Version, now, now)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	task.ID = id
	return nil
}

// DecomposeGoal creates one high-priority parent task plus its subtasks as a
// single transaction, so a partially established goal can never be observed.
// Returns the parent task id.
func (s *Store) DecomposeGoal(title, description string, subtasks []Subtask) (int64, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO tasks (title, description, status, priority, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, title, description, StatusPending, PriorityHigh, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create goal: %w", err)
	}
	parentID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, sub := range subtasks {
		priority := sub.Priority
		if priority == "" {
			priority = PriorityMedium
		}
		_, err := tx.Exec(`
			INSERT INTO tasks (title, description, status, priority, parent_id, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		`, sub.Title, sub.Description, StatusPending, priority, parentID, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to create subtask %q: %w", sub.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return parentID, nil
}

// GetTask retrieves a task by id, checking the active set first and the
// archive second. Returns ErrTaskNotFound for unknown ids.
func (s *Store) GetTask(id int64) (*Task, error) {
	task := &Task{}
	err := s.conn.QueryRow(`
		SELECT id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id).Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.Deadline, &task.ParentID, &task.Version, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.getArchivedTask(id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadTaskLinks(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) getArchivedTask(id int64) (*Task, error) {
	task := &Task{}
	var completedAt time.Time
	err := s.conn.QueryRow(`
		SELECT id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at, completed_at
		FROM archived_tasks WHERE id = ?
	`, id).Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.Deadline, &task.ParentID, &task.Version, &task.CreatedAt, &task.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	task.CompletedAt = &completedAt

	if err := s.loadTaskLinks(task); err != nil {
		return nil, err
	}
	return task, nil
}

// loadTaskLinks fills in subtasks, dependencies and notes for a task
func (s *Store) loadTaskLinks(task *Task) error {
	rows, err := s.conn.Query("SELECT id FROM tasks WHERE parent_id = ? ORDER BY id", task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		task.Subtasks = append(task.Subtasks, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	depRows, err := s.conn.Query("SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_id", task.ID)
	if err != nil {
		return err
	}
	defer depRows.Close()
	for depRows.Next() {
		var id int64
		if err := depRows.Scan(&id); err != nil {
			return err
		}
		task.Dependencies = append(task.Dependencies, id)
	}
	if err := depRows.Err(); err != nil {
		return err
	}

	noteRows, err := s.conn.Query("SELECT created_at, content FROM task_notes WHERE task_id = ? ORDER BY id", task.ID)
	if err != nil {
		return err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var note Note
		if err := noteRows.Scan(&note.CreatedAt, &note.Content); err != nil {
			return err
		}
		task.Notes = append(task.Notes, note)
	}
	return noteRows.Err()
}

// ListActiveTasks retrieves all tasks in the active set with their
// dependency links loaded, ordered by creation.
func (s *Store) ListActiveTasks() ([]*Task, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at
		FROM tasks ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	byID := make(map[int64]*Task)
	for rows.Next() {
		task := &Task{}
		err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
			&task.Deadline, &task.ParentID, &task.Version, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
		byID[task.ID] = task
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	depRows, err := s.conn.Query("SELECT task_id, depends_on_id FROM task_dependencies ORDER BY task_id, depends_on_id")
	if err != nil {
		return nil, err
	}
	defer depRows.Close()
	for depRows.Next() {
		var taskID, depID int64
		if err := depRows.Scan(&taskID, &depID); err != nil {
			return nil, err
		}
		if task, ok := byID[taskID]; ok {
			task.Dependencies = append(task.Dependencies, depID)
		}
	}
	return tasks, depRows.Err()
}

// ListArchivedTasks retrieves completed tasks from the archive,
// most recently completed first.
func (s *Store) ListArchivedTasks() ([]*Task, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at, completed_at
		FROM archived_tasks ORDER BY completed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		var completedAt time.Time
		err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
			&task.Deadline, &task.ParentID, &task.Version, &task.CreatedAt, &task.UpdatedAt, &completedAt)
		if err != nil {
			return nil, err
		}
		task.CompletedAt = &completedAt
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus transitions a task to a new status, optionally appending a
// note, and returns false for unknown or already-archived ids. The whole
// transition runs in one transaction with a version bump so overlapping
// invocations cannot lose updates. Transitioning to completed moves the task
// into the archive, after which it is never mutated again.
func (s *Store) UpdateTaskStatus(id int64, status TaskStatus, note string) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid status %q", status)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE tasks SET status = ?, updated_at = ?, version = version + 1 WHERE id = ?
	`, status, now, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if note != "" {
		if _, err := tx.Exec(`
			INSERT INTO task_notes (task_id, created_at, content) VALUES (?, ?, ?)
		`, id, now, note); err != nil {
			return false, err
		}
	}

	if status == StatusCompleted {
		if _, err := tx.Exec(`
			INSERT INTO archived_tasks (id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at, completed_at)
			SELECT id, title, description, status, priority, deadline, parent_id, version, created_at, updated_at, ?
			FROM tasks WHERE id = ?
		`, now, id); err != nil {
			return false, err
		}
		if _, err := tx.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
			return false, err
		}
		// Free any calendar blocks the task still held.
		if _, err := tx.Exec(`
			UPDATE time_blocks SET task_id = NULL, status = ? WHERE task_id = ?
		`, BlockAvailable, id); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTask updates the mutable descriptive fields of an active task
func (s *Store) UpdateTask(task *Task) error {
	task.UpdatedAt = time.Now()
	result, err := s.conn.Exec(`
		UPDATE tasks SET title = ?, description = ?, priority = ?, deadline = ?, updated_at = ?, version = version + 1
		WHERE id = ?
	`, task.Title, task.Description, task.Priority, task.Deadline, task.UpdatedAt, task.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// AddNote appends an entry to a task's audit trail. Returns false for
// unknown ids.
func (s *Store) AddNote(id int64, content string) (bool, error) {
	if ok, err := s.taskExists(id); err != nil || !ok {
		return false, err
	}
	now := time.Now()
	_, err := s.conn.Exec(`
		INSERT INTO task_notes (task_id, created_at, content) VALUES (?, ?, ?)
	`, id, now, content)
	if err != nil {
		return false, err
	}
	_, err = s.conn.Exec("UPDATE tasks SET updated_at = ?, version = version + 1 WHERE id = ?", now, id)
	return err == nil, err
}

// AddDependency records that task id may not be considered done-ready until
// dependsOnID completes. Returns false if either id is unknown.
func (s *Store) AddDependency(id, dependsOnID int64) (bool, error) {
	for _, tid := range []int64{id, dependsOnID} {
		ok, err := s.taskExists(tid)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	_, err := s.conn.Exec(`
		INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)
	`, id, dependsOnID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) taskExists(id int64) (bool, error) {
	var n int
	err := s.conn.QueryRow("SELECT COUNT(1) FROM tasks WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
