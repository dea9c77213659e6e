// Package escalate decides when the agent should defer to a human instead of
// acting autonomously.
package escalate

import (
	"fmt"
	"time"

	"github.com/gabmichels/chloe-engine/internal/scoring"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// ambiguityWindow is the score gap under which two competing high-priority
// tasks need a human tie-break.
const ambiguityWindow = 0.1

// Decision is the outcome of an escalation check
type Decision struct {
	Escalate bool
	Reason   string
	// TaskIDs names the tasks that triggered the decision, in the order
	// they were matched.
	TaskIDs []int64
}

// Check inspects the prioritized task list and applies the escalation rules
// in order; the first match wins. Only the subset passed in is inspected,
// so the caller controls how many candidates are considered.
func Check(prioritized []scoring.ScoredTask, now time.Time) Decision {
	// Rule 1: a blocked high-priority task always needs a human.
	for _, st := range prioritized {
		if st.Task.Status == store.StatusBlocked && st.Task.Priority == store.PriorityHigh {
			return Decision{
				Escalate: true,
				Reason:   fmt.Sprintf("high-priority task %q is blocked", st.Task.Title),
				TaskIDs:  []int64{st.Task.ID},
			}
		}
	}

	// Rule 2: two high-priority tasks too close to call.
	var high []scoring.ScoredTask
	for _, st := range prioritized {
		if st.Task.Priority == store.PriorityHigh {
			high = append(high, st)
		}
	}
	if len(high) >= 2 && high[0].Score-high[1].Score < ambiguityWindow {
		return Decision{
			Escalate: true,
			Reason: fmt.Sprintf("ambiguous priority between %q and %q (scores %.2f vs %.2f)",
				high[0].Task.Title, high[1].Task.Title, high[0].Score, high[1].Score),
			TaskIDs: []int64{high[0].Task.ID, high[1].Task.ID},
		}
	}

	// Rule 3: a deadline inside 24 hours, including already past.
	for _, st := range prioritized {
		if st.Task.Deadline == "" {
			continue
		}
		due, err := time.ParseInLocation("2006-01-02", st.Task.Deadline, now.Location())
		if err != nil {
			continue
		}
		if due.Sub(now) <= 24*time.Hour {
			return Decision{
				Escalate: true,
				Reason:   fmt.Sprintf("task %q is due within 24 hours (%s)", st.Task.Title, st.Task.Deadline),
				TaskIDs:  []int64{st.Task.ID},
			}
		}
	}

	return Decision{}
}
