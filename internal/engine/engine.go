// Package engine implements the behavior decision loop: one invocation
// observes the task list and the daily rhythm, then dispatches at most one
// action (escalation, task work, or an idle activity) to the executor.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gabmichels/chloe-engine/internal/escalate"
	"github.com/gabmichels/chloe-engine/internal/idle"
	"github.com/gabmichels/chloe-engine/internal/rhythm"
	"github.com/gabmichels/chloe-engine/internal/scoring"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// Mode selects how much the engine is allowed to commit
type Mode string

const (
	// ModeAutomatic dispatches to the executor and commits side effects.
	ModeAutomatic Mode = "auto"
	// ModeSimulation computes the decision but never invokes the executor,
	// flips no task status, and commits no cooldown.
	ModeSimulation Mode = "simulation"
	// ModeApproval behaves like automatic but the dispatch instructions ask
	// for human confirmation before irreversible steps.
	ModeApproval Mode = "approval"
)

// ParseMode maps a CLI mode string to a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAutomatic, ModeSimulation, ModeApproval:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want auto, simulation or approval)", s)
}

// Action names what the decision loop chose to do
type Action string

const (
	ActionTask       Action = "task"
	ActionIdle       Action = "idle"
	ActionEscalation Action = "escalation"
	ActionNone       Action = "none"
)

// Executor is the external black box that turns instructions into output.
// The engine treats the returned string as display text only.
type Executor interface {
	Execute(ctx context.Context, instructions string) (string, error)
}

// Notifier receives escalation decisions bound for a human channel.
// Implementations must be safe to call with a long-running engine.
type Notifier interface {
	NotifyEscalation(reason string, tasks []*store.Task) error
}

// Result is the outcome of one decision loop invocation. Internal failures
// degrade into a Result with Err set; Run never panics or returns an error.
type Result struct {
	Action       Action         `json:"action"`
	Mode         Mode           `json:"mode"`
	InvocationID string         `json:"invocation_id"`
	Reason       string         `json:"reason,omitempty"`
	TaskID       int64          `json:"task_id,omitempty"`
	TaskTitle    string         `json:"task_title,omitempty"`
	Score        float64        `json:"score,omitempty"`
	TaskIDs      []int64        `json:"task_ids,omitempty"`
	Activity     *idle.Activity `json:"activity,omitempty"`
	Output       string         `json:"output,omitempty"`
	Err          string         `json:"error,omitempty"`
	// Elapsed covers the decision only, not the executor call.
	Elapsed time.Duration `json:"elapsed"`
}

// Failed reports whether the dispatch (not the decision) failed
func (r *Result) Failed() bool { return r.Err != "" }

// Engine orchestrates one decision per invocation
type Engine struct {
	store    *store.Store
	executor Executor
	selector *idle.Selector
	notifier Notifier

	// limit caps how many prioritized candidates are considered.
	limit int
	now   func() time.Time
}

// New creates an engine. notifier may be nil.
func New(st *store.Store, exec Executor, selector *idle.Selector, notifier Notifier) *Engine {
	return &Engine{
		store:    st,
		executor: exec,
		selector: selector,
		notifier: notifier,
		limit:    5,
		now:      time.Now,
	}
}

// SetClock overrides the engine's time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetCandidateLimit overrides how many prioritized tasks are considered
func (e *Engine) SetCandidateLimit(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Run executes one decision loop invocation in the given mode
func (e *Engine) Run(ctx context.Context, mode Mode) *Result {
	start := e.now()
	result := &Result{
		Action:       ActionNone,
		Mode:         mode,
		InvocationID: uuid.NewString(),
	}

	behaviors := rhythm.Today(start)

	tasks, err := e.store.ListActiveTasks()
	if err != nil {
		result.Err = fmt.Sprintf("failed to read tasks: %v", err)
		result.Elapsed = e.now().Sub(start)
		return result
	}

	prioritized := scoring.Prioritize(tasks, behaviors, e.limit, start)

	// Blocked tasks never survive prioritization, but the escalation policy
	// must still see blocked high-priority work. Append them as extra
	// candidates so rule 1 can fire.
	candidates := prioritized
	for _, t := range tasks {
		if t.Status == store.StatusBlocked {
			candidates = append(candidates, scoring.ScoredTask{Task: t, Score: scoring.Score(t, behaviors, start)})
		}
	}

	decision := escalate.Check(candidates, start)

	switch {
	case decision.Escalate:
		e.runEscalation(ctx, mode, result, decision, candidates, start)
	case len(prioritized) > 0:
		e.runTask(ctx, mode, result, prioritized[0], start)
	default:
		e.runIdle(ctx, mode, result, start)
	}
	return result
}

func (e *Engine) runEscalation(ctx context.Context, mode Mode, result *Result, decision escalate.Decision, candidates []scoring.ScoredTask, start time.Time) {
	result.Action = ActionEscalation
	result.Reason = decision.Reason
	result.TaskIDs = decision.TaskIDs
	result.Elapsed = e.now().Sub(start)

	prompt := e.escalationPrompt(mode, decision, candidates)

	if mode != ModeSimulation {
		output, err := e.executor.Execute(ctx, prompt)
		result.Output = output
		if err != nil {
			result.Err = fmt.Sprintf("executor failed: %v", err)
		}
		if e.notifier != nil {
			var named []*store.Task
			for _, st := range candidates {
				for _, id := range decision.TaskIDs {
					if st.Task.ID == id {
						named = append(named, st.Task)
					}
				}
			}
			if err := e.notifier.NotifyEscalation(decision.Reason, named); err != nil {
				// Notification failure never blocks the decision.
				result.Reason = result.Reason + " (notification failed)"
			}
		}
	}

	e.appendLog(result, store.ActionEscalation, "escalate", map[string]interface{}{
		"reason":   decision.Reason,
		"task_ids": decision.TaskIDs,
	})
}

func (e *Engine) runTask(ctx context.Context, mode Mode, result *Result, top scoring.ScoredTask, start time.Time) {
	result.Action = ActionTask
	result.TaskID = top.Task.ID
	result.TaskTitle = top.Task.Title
	result.Score = top.Score
	result.Elapsed = e.now().Sub(start)

	if mode != ModeSimulation && top.Task.Status == store.StatusPending {
		ok, err := e.store.UpdateTaskStatus(top.Task.ID, store.StatusInProgress, "Picked up by decision loop")
		if err != nil {
			result.Err = fmt.Sprintf("failed to start task: %v", err)
		} else if !ok {
			// Task vanished between prioritization and dispatch; the loop
			// must keep running regardless.
			result.Err = fmt.Sprintf("task %d no longer exists", top.Task.ID)
		}
	}

	if mode != ModeSimulation && result.Err == "" {
		output, err := e.executor.Execute(ctx, e.taskPrompt(mode, top))
		result.Output = output
		if err != nil {
			result.Err = fmt.Sprintf("executor failed: %v", err)
		}
	}

	e.appendLog(result, store.ActionTask, top.Task.Title, map[string]interface{}{
		"task_id": top.Task.ID,
		"score":   top.Score,
	})
}

func (e *Engine) runIdle(ctx context.Context, mode Mode, result *Result, start time.Time) {
	activity, err := e.selector.Choose()
	if err != nil {
		result.Err = fmt.Sprintf("failed to choose idle activity: %v", err)
		result.Elapsed = e.now().Sub(start)
		return
	}
	if activity == nil {
		result.Reason = "no tasks and no idle activity available"
		result.Elapsed = e.now().Sub(start)
		// Nothing dispatched, nothing logged.
		return
	}

	result.Action = ActionIdle
	result.Activity = activity
	result.Elapsed = e.now().Sub(start)

	if mode != ModeSimulation {
		output, err := e.executor.Execute(ctx, e.idlePrompt(mode, activity))
		result.Output = output
		if err != nil {
			result.Err = fmt.Sprintf("executor failed: %v", err)
		}
	}

	// The log entry is what commits the cooldown: simulated entries are
	// ignored by the selector's last-run lookup.
	e.appendLog(result, store.ActionIdle, activity.Function, map[string]interface{}{
		"activity": activity.Name,
	})
}

// appendLog writes the audit record for a dispatch. Every dispatched (or
// simulated) branch logs, including failed dispatches, so the trail is never
// silently incomplete.
func (e *Engine) appendLog(result *Result, actionType store.ActionType, actionName string, details map[string]interface{}) {
	details["mode"] = string(result.Mode)
	details["elapsed_ms"] = result.Elapsed.Milliseconds()
	if result.Err != "" {
		details["error"] = result.Err
	} else if result.Mode != ModeSimulation && result.Output != "" {
		details["output"] = truncate(result.Output, 4000)
	}

	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte(fmt.Sprintf("{%q:%q}", "marshal_error", err.Error()))
	}

	entry := &store.LogEntry{
		InvocationID: result.InvocationID,
		CreatedAt:    e.now(),
		ActionType:   actionType,
		ActionName:   actionName,
		Details:      string(payload),
		Simulated:    result.Mode == ModeSimulation,
	}
	if err := e.store.AppendLog(entry); err != nil && result.Err == "" {
		result.Err = fmt.Sprintf("failed to write execution log: %v", err)
	}
}

func (e *Engine) taskPrompt(mode Mode, st scoring.ScoredTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Work on the following task.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", st.Task.Title)
	if st.Task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", st.Task.Description)
	}
	fmt.Fprintf(&b, "Priority: %s (score %.2f)\n", st.Task.Priority, st.Score)
	if st.Task.Deadline != "" {
		fmt.Fprintf(&b, "Deadline: %s\n", st.Task.Deadline)
	}
	b.WriteString(e.approvalGuard(mode))
	b.WriteString("\nReport what you accomplished and anything still open.")
	return b.String()
}

func (e *Engine) idlePrompt(mode Mode, activity *idle.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No task is scheduled right now. Perform this idle activity.\n\n")
	fmt.Fprintf(&b, "Activity: %s (%s)\n", activity.Name, activity.Function)
	fmt.Fprintf(&b, "Description: %s\n", activity.Description)
	b.WriteString(e.approvalGuard(mode))
	b.WriteString("\nSummarize what you found or did.")
	return b.String()
}

// escalationPrompt synthesizes the human-consultation request, listing up to
// three candidate tasks with their unmet dependencies.
func (e *Engine) escalationPrompt(mode Mode, decision escalate.Decision, candidates []scoring.ScoredTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A human decision is needed before autonomous work continues.\n")
	fmt.Fprintf(&b, "Reason: %s\n\nCandidate tasks:\n", decision.Reason)

	shown := 0
	for _, st := range candidates {
		if shown == 3 {
			break
		}
		shown++
		fmt.Fprintf(&b, "%d. %s [%s, status %s, score %.2f", shown, st.Task.Title, st.Task.Priority, st.Task.Status, st.Score)
		if st.Task.Deadline != "" {
			fmt.Fprintf(&b, ", due %s", st.Task.Deadline)
		}
		b.WriteString("]\n")
		if unmet := e.unmetDependencies(st.Task); len(unmet) > 0 {
			fmt.Fprintf(&b, "   waiting on: %s\n", strings.Join(unmet, "; "))
		}
	}

	b.WriteString(e.approvalGuard(mode))
	b.WriteString("\nDraft a concise summary of the situation and the options, then ask the human how to proceed.")
	return b.String()
}

// unmetDependencies resolves a task's dependency ids to the titles of those
// still in the active set (completed dependencies live in the archive).
func (e *Engine) unmetDependencies(task *store.Task) []string {
	var unmet []string
	for _, depID := range task.Dependencies {
		dep, err := e.store.GetTask(depID)
		if err != nil {
			continue
		}
		if dep.Status != store.StatusCompleted {
			unmet = append(unmet, fmt.Sprintf("#%d %s", dep.ID, dep.Title))
		}
	}
	return unmet
}

func (e *Engine) approvalGuard(mode Mode) string {
	if mode == ModeApproval {
		return "\nApproval mode is active: ask for human confirmation before any irreversible step."
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
