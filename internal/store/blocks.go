package store

import (
	"database/sql"
	"errors"
	"time"
)

// DeleteBlocksBefore prunes calendar blocks whose start time is before t,
// returning how many were removed.
func (s *Store) DeleteBlocksBefore(t time.Time) (int64, error) {
	result, err := s.conn.Exec("DELETE FROM time_blocks WHERE start_time < ?", t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// InsertBlocks adds new available blocks in one transaction. Blocks whose
// start time already exists are ignored, so regeneration never duplicates or
// clobbers retained future blocks.
func (s *Store) InsertBlocks(blocks []TimeBlock) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO time_blocks (start_time, end_time, task_id, status) VALUES (?, ?, NULL, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range blocks {
		if _, err := stmt.Exec(b.StartTime, b.EndTime, BlockAvailable); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListBlocksFrom returns all blocks starting at or after t, ordered by start
func (s *Store) ListBlocksFrom(t time.Time) ([]*TimeBlock, error) {
	return s.queryBlocks("SELECT id, start_time, end_time, task_id, status FROM time_blocks WHERE start_time >= ? ORDER BY start_time", t)
}

// ListBlocksBetween returns all blocks with from <= start < to, ordered by start
func (s *Store) ListBlocksBetween(from, to time.Time) ([]*TimeBlock, error) {
	return s.queryBlocks("SELECT id, start_time, end_time, task_id, status FROM time_blocks WHERE start_time >= ? AND start_time < ? ORDER BY start_time", from, to)
}

// BlocksForTask returns the blocks currently assigned to a task, ordered by start
func (s *Store) BlocksForTask(taskID int64) ([]*TimeBlock, error) {
	return s.queryBlocks("SELECT id, start_time, end_time, task_id, status FROM time_blocks WHERE task_id = ? ORDER BY start_time", taskID)
}

func (s *Store) queryBlocks(query string, args ...interface{}) ([]*TimeBlock, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*TimeBlock
	for rows.Next() {
		b := &TimeBlock{}
		if err := rows.Scan(&b.ID, &b.StartTime, &b.EndTime, &b.TaskID, &b.Status); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// BlockAt returns the block covering instant t, or nil if none exists
func (s *Store) BlockAt(t time.Time) (*TimeBlock, error) {
	b := &TimeBlock{}
	err := s.conn.QueryRow(`
		SELECT id, start_time, end_time, task_id, status FROM time_blocks
		WHERE start_time <= ? AND end_time > ? ORDER BY start_time LIMIT 1
	`, t, t).Scan(&b.ID, &b.StartTime, &b.EndTime, &b.TaskID, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AssignBlocks marks the given blocks as scheduled for a task, atomically
func (s *Store) AssignBlocks(blockIDs []int64, taskID int64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range blockIDs {
		if _, err := tx.Exec(`
			UPDATE time_blocks SET task_id = ?, status = ? WHERE id = ?
		`, taskID, BlockScheduled, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearTaskBlocks releases every block held by a task back to available
func (s *Store) ClearTaskBlocks(taskID int64) error {
	_, err := s.conn.Exec(`
		UPDATE time_blocks SET task_id = NULL, status = ? WHERE task_id = ?
	`, BlockAvailable, taskID)
	return err
}
