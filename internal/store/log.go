package store

import "time"

// AppendLog writes one execution log entry. The log is append-only: nothing
// in the engine updates or deletes entries.
func (s *Store) AppendLog(e *LogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := s.conn.Exec(`
		INSERT INTO execution_log (invocation_id, created_at, action_type, action_name, details, simulated)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.InvocationID, e.CreatedAt, e.ActionType, e.ActionName, e.Details, e.Simulated)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListLog returns the most recent log entries, newest first
func (s *Store) ListLog(limit int) ([]*LogEntry, error) {
	rows, err := s.conn.Query(`
		SELECT id, invocation_id, created_at, action_type, action_name, details, simulated
		FROM execution_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		e := &LogEntry{}
		if err := rows.Scan(&e.ID, &e.InvocationID, &e.CreatedAt, &e.ActionType, &e.ActionName, &e.Details, &e.Simulated); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastIdleRuns returns the most recent committed execution time per idle
// activity, keyed by the activity's function name. Simulated entries are
// excluded so simulation runs never commit a cooldown.
func (s *Store) LastIdleRuns() (map[string]time.Time, error) {
	rows, err := s.conn.Query(`
		SELECT action_name, MAX(created_at) FROM execution_log
		WHERE action_type = ? AND simulated = 0
		GROUP BY action_name
	`, ActionIdle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	last := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var t time.Time
		if err := rows.Scan(&name, &t); err != nil {
			return nil, err
		}
		last[name] = t
	}
	return last, rows.Err()
}
