// Package calendar maintains the agent's working calendar: fixed-duration
// time blocks generated over a rolling horizon and greedily packed with
// pending tasks in priority order.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/gabmichels/chloe-engine/internal/rhythm"
	"github.com/gabmichels/chloe-engine/internal/scoring"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// Config controls block generation and packing
type Config struct {
	WorkStartHour int // first working hour, inclusive
	WorkEndHour   int // end of working hours, exclusive
	BlockMinutes  int // block duration
	BlocksPerTask int // contiguous blocks a task needs
}

// DefaultConfig is an 09:00-17:00 weekday calendar of 30-minute blocks
func DefaultConfig() Config {
	return Config{
		WorkStartHour: 9,
		WorkEndHour:   17,
		BlockMinutes:  30,
		BlocksPerTask: 1,
	}
}

// Summary reports the outcome of one auto-schedule run
type Summary struct {
	ScheduledCount int `json:"scheduled_count"`
	TotalPending   int `json:"total_pending"`
	TotalBlocks    int `json:"total_blocks"`
}

// Entry is a time block with its task reference resolved for display
type Entry struct {
	Block      *store.TimeBlock `json:"block"`
	TaskTitle  string           `json:"task_title,omitempty"`
	TaskStatus store.TaskStatus `json:"task_status,omitempty"`
}

// Scheduler builds and queries the time-block calendar
type Scheduler struct {
	store *store.Store
	cfg   Config

	// now is swappable for tests
	now func() time.Time
}

// New creates a scheduler over the given store
func New(st *store.Store, cfg Config) *Scheduler {
	if cfg.BlockMinutes <= 0 {
		cfg.BlockMinutes = 30
	}
	if cfg.BlocksPerTask <= 0 {
		cfg.BlocksPerTask = 1
	}
	return &Scheduler{store: st, cfg: cfg, now: time.Now}
}

// SetClock overrides the scheduler's time source
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// AutoSchedule refreshes the calendar over the next daysAhead days and packs
// pending tasks into free blocks. Greedy first-fit in priority order; a task
// that cannot find a contiguous run stays unscheduled until the next cycle.
func (s *Scheduler) AutoSchedule(daysAhead int) (*Summary, error) {
	if daysAhead <= 0 {
		return nil, fmt.Errorf("daysAhead must be positive, got %d", daysAhead)
	}
	now := s.now()

	if _, err := s.store.DeleteBlocksBefore(now); err != nil {
		return nil, fmt.Errorf("failed to prune past blocks: %w", err)
	}

	if err := s.store.InsertBlocks(s.generateBlocks(now, daysAhead)); err != nil {
		return nil, fmt.Errorf("failed to insert blocks: %w", err)
	}

	blocks, err := s.store.ListBlocksFrom(now)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	tasks, err := s.store.ListActiveTasks()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	pending := make([]*store.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == store.StatusPending {
			pending = append(pending, t)
		}
	}
	prioritized := scoring.Prioritize(pending, rhythm.Today(now), 0, now)

	// Tasks already holding a future block keep their slot across runs.
	occupied := make(map[int64]bool)
	for _, b := range blocks {
		if b.TaskID != nil {
			occupied[*b.TaskID] = true
		}
	}

	scheduled := 0
	for _, st := range prioritized {
		if occupied[st.Task.ID] {
			continue
		}
		run := findContiguousRun(blocks, s.cfg.BlocksPerTask)
		if run == nil {
			continue
		}
		ids := make([]int64, len(run))
		for i, b := range run {
			ids[i] = b.ID
		}
		if err := s.store.AssignBlocks(ids, st.Task.ID); err != nil {
			return nil, fmt.Errorf("failed to assign blocks to task %d: %w", st.Task.ID, err)
		}
		taskID := st.Task.ID
		for _, b := range run {
			b.TaskID = &taskID
			b.Status = store.BlockScheduled
		}
		scheduled++
	}

	return &Summary{
		ScheduledCount: scheduled,
		TotalPending:   len(pending),
		TotalBlocks:    len(blocks),
	}, nil
}

// generateBlocks produces block candidates from the next block boundary
// through now + daysAhead, restricted to working hours on weekdays.
func (s *Scheduler) generateBlocks(now time.Time, daysAhead int) []store.TimeBlock {
	blockLen := time.Duration(s.cfg.BlockMinutes) * time.Minute
	end := now.Add(time.Duration(daysAhead) * 24 * time.Hour)

	// Round up to the next block boundary within the hour grid.
	start := now.Truncate(blockLen)
	if start.Before(now) {
		start = start.Add(blockLen)
	}

	var blocks []store.TimeBlock
	for t := start; t.Before(end); t = t.Add(blockLen) {
		if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
			continue
		}
		if t.Hour() < s.cfg.WorkStartHour || t.Hour() >= s.cfg.WorkEndHour {
			continue
		}
		blocks = append(blocks, store.TimeBlock{
			StartTime: t,
			EndTime:   t.Add(blockLen),
			Status:    store.BlockAvailable,
		})
	}
	return blocks
}

// findContiguousRun scans for the first run of n available blocks with no
// gap between them, or nil when the calendar is too fragmented.
func findContiguousRun(blocks []*store.TimeBlock, n int) []*store.TimeBlock {
	var run []*store.TimeBlock
	for _, b := range blocks {
		if b.Status != store.BlockAvailable {
			run = nil
			continue
		}
		if len(run) > 0 && !run[len(run)-1].EndTime.Equal(b.StartTime) {
			run = run[:0]
		}
		run = append(run, b)
		if len(run) == n {
			return run
		}
	}
	return nil
}

// TodaysSchedule returns today's blocks with task titles and statuses
// resolved. Read-only: calling it twice without an intervening schedule or
// status change yields identical results.
func (s *Scheduler) TodaysSchedule() ([]Entry, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	blocks, err := s.store.ListBlocksBetween(dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list today's blocks: %w", err)
	}

	entries := make([]Entry, 0, len(blocks))
	for _, b := range blocks {
		e := Entry{Block: b}
		if b.TaskID != nil {
			task, err := s.store.GetTask(*b.TaskID)
			if err == nil {
				e.TaskTitle = task.Title
				e.TaskStatus = task.Status
			} else if !errors.Is(err, store.ErrTaskNotFound) {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CurrentTask answers "what should I be doing right now". When the covering
// block holds a pending task, observing it flips the task to in_progress.
// Returns nil without error when no block or task applies.
func (s *Scheduler) CurrentTask() (*store.Task, error) {
	block, err := s.store.BlockAt(s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to look up current block: %w", err)
	}
	if block == nil || block.TaskID == nil {
		return nil, nil
	}

	task, err := s.store.GetTask(*block.TaskID)
	if errors.Is(err, store.ErrTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if task.Status == store.StatusPending {
		ok, err := s.store.UpdateTaskStatus(task.ID, store.StatusInProgress, "Started from scheduled time block")
		if err != nil {
			return nil, err
		}
		if ok {
			task.Status = store.StatusInProgress
		}
	}
	return task, nil
}

// RescheduleTask moves a task to the available block closest to the
// requested instant, releasing any blocks it currently holds. Returns false
// when the task is unknown or no available block exists at all.
func (s *Scheduler) RescheduleTask(taskID int64, when time.Time) (bool, error) {
	if _, err := s.store.GetTask(taskID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.store.ClearTaskBlocks(taskID); err != nil {
		return false, fmt.Errorf("failed to clear blocks: %w", err)
	}

	blocks, err := s.store.ListBlocksFrom(s.now())
	if err != nil {
		return false, err
	}

	var best *store.TimeBlock
	var bestDist time.Duration
	for _, b := range blocks {
		if b.Status != store.BlockAvailable {
			continue
		}
		dist := b.StartTime.Sub(when)
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist {
			best = b
			bestDist = dist
		}
	}
	if best == nil {
		return false, nil
	}

	if err := s.store.AssignBlocks([]int64{best.ID}, taskID); err != nil {
		return false, err
	}
	return true, nil
}
