package rhythm

import (
	"testing"
	"time"
)

func TestEveryDayHasBehaviors(t *testing.T) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		behaviors := ForDay(day)
		if len(behaviors) == 0 {
			t.Errorf("%s has no behaviors", day)
		}
		for _, b := range behaviors {
			if b.Name == "" || b.Function == "" {
				t.Errorf("%s has a behavior with empty name or function: %+v", day, b)
			}
			switch b.Priority {
			case PriorityHigh, PriorityMedium, PriorityLow:
			default:
				t.Errorf("%s behavior %q has invalid priority %q", day, b.Name, b.Priority)
			}
		}
	}
}

func TestMondayLeadsWithPlanning(t *testing.T) {
	behaviors := ForDay(time.Monday)
	if len(behaviors) != 3 {
		t.Fatalf("Monday has %d behaviors, want 3", len(behaviors))
	}
	if behaviors[0].Name != "Analyze Analytics" || behaviors[0].Priority != PriorityHigh {
		t.Errorf("Monday starts with %+v", behaviors[0])
	}
}

func TestForDayReturnsCopy(t *testing.T) {
	first := ForDay(time.Friday)
	first[0].Name = "mutated"

	again := ForDay(time.Friday)
	if again[0].Name == "mutated" {
		t.Error("ForDay must return a copy, not the catalog itself")
	}
}

func TestToday(t *testing.T) {
	// 2026-03-07 is a Saturday.
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	behaviors := Today(saturday)
	if len(behaviors) != 1 || behaviors[0].Name != "Light Reading" {
		t.Errorf("Saturday behaviors = %+v", behaviors)
	}
}
