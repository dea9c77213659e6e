// Package scoring computes multi-factor priority scores for tasks.
package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/gabmichels/chloe-engine/internal/rhythm"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// Sub-score weights. Deliberately not renormalized: downstream thresholds
// (notably escalation's 0.1 ambiguity window) are tuned against this exact
// weighted sum.
const (
	WeightDeadline = 0.4
	WeightPriority = 0.3
	WeightRhythm   = 0.2
	WeightRecency  = 0.1
)

// DefaultHorizonDays is how far out a deadline still contributes urgency
const DefaultHorizonDays = 14

// ScoredTask pairs a task with its computed priority score
type ScoredTask struct {
	Task  *store.Task
	Score float64
}

// Score computes the priority score for one task in [0, 1)
func Score(task *store.Task, behaviors []rhythm.Behavior, now time.Time) float64 {
	return ScoreWithHorizon(task, behaviors, now, DefaultHorizonDays)
}

// ScoreWithHorizon is Score with an explicit deadline horizon
func ScoreWithHorizon(task *store.Task, behaviors []rhythm.Behavior, now time.Time, horizonDays int) float64 {
	return WeightDeadline*deadlineScore(task.Deadline, now, horizonDays) +
		WeightPriority*priorityScore(task.Priority) +
		WeightRhythm*rhythmScore(task, behaviors) +
		WeightRecency*recencyScore(task.UpdatedAt, now)
}

// deadlineScore rewards urgency. A missing or malformed deadline degrades to
// a neutral 0.3 instead of failing the prioritization pass.
func deadlineScore(deadline string, now time.Time, horizonDays int) float64 {
	if deadline == "" {
		return 0.3
	}
	due, err := time.ParseInLocation("2006-01-02", deadline, now.Location())
	if err != nil {
		return 0.3
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daysLeft := int(due.Sub(today).Hours() / 24)

	switch {
	case daysLeft < 0:
		return 1.0
	case daysLeft == 0:
		return 0.9
	case daysLeft <= horizonDays:
		return 0.8 * (1 - float64(daysLeft)/float64(horizonDays))
	default:
		return 0.1
	}
}

func priorityScore(p store.TaskPriority) float64 {
	switch p {
	case store.PriorityHigh:
		return 1.0
	case store.PriorityMedium:
		return 0.6
	case store.PriorityLow:
		return 0.3
	default:
		return 0.5
	}
}

// recencyScore rewards neglected tasks so nothing rots at the bottom of the list
func recencyScore(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.5
	}
	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed <= 24*time.Hour:
		return 0.2
	case elapsed <= 3*24*time.Hour:
		return 0.4
	case elapsed <= 7*24*time.Hour:
		return 0.7
	default:
		return 0.9
	}
}

// rhythmScore checks whether the task lines up with today's planned
// behaviors. The strongest-priority match wins.
func rhythmScore(task *store.Task, behaviors []rhythm.Behavior) float64 {
	haystack := strings.ToLower(task.Title + " " + task.Description)

	best := 0.3
	for _, b := range behaviors {
		if !behaviorMatches(haystack, b) {
			continue
		}
		var s float64
		switch b.Priority {
		case rhythm.PriorityHigh:
			s = 1.0
		case rhythm.PriorityMedium:
			s = 0.8
		default:
			s = 0.6
		}
		if s > best {
			best = s
		}
	}
	return best
}

// behaviorMatches reports a case-insensitive containment match against the
// behavior's name, description or dispatch handle.
func behaviorMatches(haystack string, b rhythm.Behavior) bool {
	needles := []string{
		strings.ToLower(b.Name),
		strings.ToLower(b.Description),
		strings.ToLower(b.Function),
		strings.ToLower(strings.ReplaceAll(b.Function, "_", " ")),
	}
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// Prioritize filters tasks to the schedulable statuses (pending and
// in_progress), scores them against today's behaviors and returns at most
// limit tasks sorted by descending score. Equal scores keep their original
// relative order. limit <= 0 means no cap.
func Prioritize(tasks []*store.Task, behaviors []rhythm.Behavior, limit int, now time.Time) []ScoredTask {
	scored := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != store.StatusPending && t.Status != store.StatusInProgress {
			continue
		}
		scored = append(scored, ScoredTask{Task: t, Score: Score(t, behaviors, now)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
