// Package trigger drives the decision loop from cron schedules. The engine
// itself is a control loop invoked once per trigger; this package is the
// external trigger for daemon mode.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gabmichels/chloe-engine/internal/calendar"
	"github.com/gabmichels/chloe-engine/internal/config"
	"github.com/gabmichels/chloe-engine/internal/engine"
)

// executorTimeout bounds one executor round trip. The engine imposes no
// timeout of its own; the trigger, as the caller, does.
const executorTimeout = 30 * time.Minute

// Trigger schedules periodic decision loop invocations and calendar refreshes
type Trigger struct {
	cron     *cron.Cron
	engine   *engine.Engine
	calendar *calendar.Scheduler
	cfg      *config.Config
	mode     engine.Mode

	mu      sync.Mutex
	running bool
	// busy prevents overlapping decision invocations from one trigger:
	// a long executor call must not pile up loop runs behind it.
	busy bool
}

// New creates a trigger that runs the engine in the given mode
func New(eng *engine.Engine, cal *calendar.Scheduler, cfg *config.Config, mode engine.Mode) *Trigger {
	return &Trigger{
		cron:     cron.New(cron.WithSeconds()),
		engine:   eng,
		calendar: cal,
		cfg:      cfg,
		mode:     mode,
	}
}

// Start registers the cron entries and begins triggering
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	if _, err := t.cron.AddFunc(t.cfg.DecisionCron, t.runDecision); err != nil {
		return fmt.Errorf("invalid decision cron expression: %w", err)
	}
	if _, err := t.cron.AddFunc(t.cfg.ScheduleCron, t.runSchedule); err != nil {
		return fmt.Errorf("invalid schedule cron expression: %w", err)
	}

	t.cron.Start()
	t.running = true
	return nil
}

// Stop halts triggering and waits for in-flight jobs to finish
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	ctx := t.cron.Stop()
	<-ctx.Done()
}

// NextDecision returns the next scheduled decision time, if any
func (t *Trigger) NextDecision() *time.Time {
	for _, entry := range t.cron.Entries() {
		if !entry.Next.IsZero() {
			next := entry.Next
			return &next
		}
	}
	return nil
}

func (t *Trigger) runDecision() {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		fmt.Println("decision loop still running, skipping this trigger")
		return
	}
	t.busy = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), executorTimeout)
	defer cancel()

	result := t.engine.Run(ctx, t.mode)
	switch result.Action {
	case engine.ActionTask:
		fmt.Printf("decision: task #%d %q (score %.2f, %s)\n", result.TaskID, result.TaskTitle, result.Score, result.Elapsed)
	case engine.ActionIdle:
		fmt.Printf("decision: idle activity %q (%s)\n", result.Activity.Name, result.Elapsed)
	case engine.ActionEscalation:
		fmt.Printf("decision: escalation: %s (%s)\n", result.Reason, result.Elapsed)
	default:
		fmt.Printf("decision: nothing to do: %s (%s)\n", result.Reason, result.Elapsed)
	}
	if result.Failed() {
		fmt.Printf("dispatch failed: %s\n", result.Err)
	}
}

func (t *Trigger) runSchedule() {
	summary, err := t.calendar.AutoSchedule(t.cfg.ScheduleDaysAhead)
	if err != nil {
		fmt.Printf("auto-schedule failed: %v\n", err)
		return
	}
	fmt.Printf("auto-schedule: %d of %d pending tasks placed across %d blocks\n",
		summary.ScheduledCount, summary.TotalPending, summary.TotalBlocks)
}
