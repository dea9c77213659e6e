// Package idle selects cooldown-gated filler activities for moments when no
// task is scheduled.
package idle

import (
	"math/rand"
	"time"

	"github.com/gabmichels/chloe-engine/internal/store"
)

// Activity is a named filler action. Function is an opaque dispatch handle
// for the executor; the engine never interprets it. Last-executed times are
// tracked in the execution log keyed by Function, not here.
type Activity struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Function      string        `json:"function_name"`
	Cooldown      time.Duration `json:"-"`
	CooldownHours float64       `json:"cooldown_hours"`
}

// DefaultActivities is the static catalog of filler work
var DefaultActivities = []Activity{
	{
		Name:        "Scan Industry News",
		Description: "Skim configured feeds and note anything worth a follow-up task",
		Function:    "scan_news",
		Cooldown:    4 * time.Hour,
	},
	{
		Name:        "Tidy Task Notes",
		Description: "Re-read recent task notes and tighten up sloppy entries",
		Function:    "tidy_notes",
		Cooldown:    8 * time.Hour,
	},
	{
		Name:        "Memory Consolidation",
		Description: "Condense the day's working context into durable notes",
		Function:    "consolidate_memory",
		Cooldown:    12 * time.Hour,
	},
	{
		Name:        "Knowledge Gap Review",
		Description: "List questions the agent could not answer lately and plan reading",
		Function:    "review_gaps",
		Cooldown:    24 * time.Hour,
	},
}

// Selector chooses among activities using a seedable randomness source
type Selector struct {
	store      *store.Store
	activities []Activity
	rng        *rand.Rand
	now        func() time.Time
}

// New creates a selector over the default activity catalog
func New(st *store.Store, rng *rand.Rand) *Selector {
	return NewWithActivities(st, rng, DefaultActivities)
}

// NewWithActivities creates a selector over an explicit catalog
func NewWithActivities(st *store.Store, rng *rand.Rand, activities []Activity) *Selector {
	for i := range activities {
		activities[i].CooldownHours = activities[i].Cooldown.Hours()
	}
	return &Selector{store: st, activities: activities, rng: rng, now: time.Now}
}

// SetClock overrides the selector's time source
func (s *Selector) SetClock(now func() time.Time) {
	s.now = now
}

// Activities returns the catalog
func (s *Selector) Activities() []Activity {
	return s.activities
}

// Choose picks an idle activity. Primary path: uniform random choice among
// activities whose cooldown has elapsed (or that never ran). Fallback when
// everything is cooling down: the activity soonest to become available.
// Returns nil only when nothing can be chosen at all.
func (s *Selector) Choose() (*Activity, error) {
	last, err := s.store.LastIdleRuns()
	if err != nil {
		return nil, err
	}
	now := s.now()

	var available []*Activity
	for i := range s.activities {
		a := &s.activities[i]
		ran, ok := last[a.Function]
		if !ok || now.Sub(ran) >= a.Cooldown {
			available = append(available, a)
		}
	}
	if len(available) > 0 {
		return available[s.rng.Intn(len(available))], nil
	}

	// Everything is on cooldown: pick the one with least remaining.
	var best *Activity
	var bestRemaining time.Duration
	for i := range s.activities {
		a := &s.activities[i]
		ran, ok := last[a.Function]
		if !ok {
			continue
		}
		remaining := a.Cooldown - now.Sub(ran)
		if best == nil || remaining < bestRemaining {
			best = a
			bestRemaining = remaining
		}
	}
	return best, nil
}
