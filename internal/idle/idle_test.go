package idle

import (
	"math/rand"
	"testing"
	"time"

	"github.com/gabmichels/chloe-engine/internal/store"
)

var now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testActivities() []Activity {
	return []Activity{
		{Name: "Scan Industry News", Function: "scan_news", Cooldown: 4 * time.Hour},
		{Name: "Tidy Task Notes", Function: "tidy_notes", Cooldown: 8 * time.Hour},
	}
}

func logIdleRun(t *testing.T, s *store.Store, function string, at time.Time, simulated bool) {
	t.Helper()
	err := s.AppendLog(&store.LogEntry{
		ActionType: store.ActionIdle,
		ActionName: function,
		CreatedAt:  at,
		Simulated:  simulated,
	})
	if err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
}

func newSelector(t *testing.T, s *store.Store, seed int64) *Selector {
	t.Helper()
	sel := NewWithActivities(s, rand.New(rand.NewSource(seed)), testActivities())
	sel.SetClock(func() time.Time { return now })
	return sel
}

func TestChooseNeverRanAllAvailable(t *testing.T) {
	s := newTestStore(t)
	sel := newSelector(t, s, 1)

	a, err := sel.Choose()
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if a == nil {
		t.Fatal("expected an activity when none has ever run")
	}
}

func TestChooseSkipsCoolingDown(t *testing.T) {
	s := newTestStore(t)
	// scan_news ran 30 minutes ago (4h cooldown): unavailable.
	// tidy_notes ran 9 hours ago (8h cooldown): available again.
	logIdleRun(t, s, "scan_news", now.Add(-30*time.Minute), false)
	logIdleRun(t, s, "tidy_notes", now.Add(-9*time.Hour), false)

	sel := newSelector(t, s, 1)
	for i := 0; i < 10; i++ {
		a, err := sel.Choose()
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if a.Function != "tidy_notes" {
			t.Fatalf("chose %q while it was cooling down", a.Function)
		}
	}
}

func TestChooseFallbackLeastRemaining(t *testing.T) {
	s := newTestStore(t)
	// Both cooling down. scan_news has 3h30m remaining, tidy_notes 7h.
	logIdleRun(t, s, "scan_news", now.Add(-30*time.Minute), false)
	logIdleRun(t, s, "tidy_notes", now.Add(-time.Hour), false)

	sel := newSelector(t, s, 1)
	a, err := sel.Choose()
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if a == nil || a.Function != "scan_news" {
		t.Errorf("fallback chose %+v, want the soonest-available activity", a)
	}
}

func TestSimulatedRunsDoNotCommitCooldown(t *testing.T) {
	s := newTestStore(t)
	logIdleRun(t, s, "scan_news", now.Add(-30*time.Minute), true)
	logIdleRun(t, s, "tidy_notes", now.Add(-30*time.Minute), false)

	sel := newSelector(t, s, 1)
	for i := 0; i < 10; i++ {
		a, err := sel.Choose()
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if a.Function != "scan_news" {
			t.Fatalf("chose %q; the simulated run should not have started a cooldown", a.Function)
		}
	}
}

func TestChooseDeterministicWithSeed(t *testing.T) {
	s := newTestStore(t)

	first, err := newSelector(t, s, 42).Choose()
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	second, err := newSelector(t, s, 42).Choose()
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if first.Function != second.Function {
		t.Errorf("same seed chose %q then %q", first.Function, second.Function)
	}
}

func TestChooseEmptyCatalog(t *testing.T) {
	s := newTestStore(t)
	sel := NewWithActivities(s, rand.New(rand.NewSource(1)), nil)
	sel.SetClock(func() time.Time { return now })

	a, err := sel.Choose()
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil from an empty catalog, got %+v", a)
	}
}

func TestCooldownHoursFilled(t *testing.T) {
	s := newTestStore(t)
	sel := newSelector(t, s, 1)

	for _, a := range sel.Activities() {
		if a.CooldownHours != a.Cooldown.Hours() {
			t.Errorf("%s CooldownHours = %v, want %v", a.Function, a.CooldownHours, a.Cooldown.Hours())
		}
	}
}
