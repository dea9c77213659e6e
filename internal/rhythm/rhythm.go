// Package rhythm defines the static daily rhythm catalog: which named
// behaviors the agent plans to lean into on each weekday.
package rhythm

import "time"

// BehaviorPriority weights a behavior within a day's rhythm
type BehaviorPriority string

const (
	PriorityHigh   BehaviorPriority = "HIGH"
	PriorityMedium BehaviorPriority = "MEDIUM"
	PriorityLow    BehaviorPriority = "LOW"
)

// Behavior is a named category of planned work tied to a weekday. Behaviors
// are statically defined and never created or destroyed at runtime. The
// Function field is an opaque dispatch handle correlated by the executor;
// the engine never interprets it.
type Behavior struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Function    string           `json:"function_name"`
	Priority    BehaviorPriority `json:"priority"`
}

// catalog maps each weekday to its ordered behavior list
var catalog = map[time.Weekday][]Behavior{
	time.Monday: {
		{Name: "Analyze Analytics", Description: "Review the week's metrics and flag anomalies worth acting on", Function: "analyze_analytics", Priority: PriorityHigh},
		{Name: "Plan Week", Description: "Lay out the week's goals and break them into tasks", Function: "plan_week", Priority: PriorityHigh},
		{Name: "Inbox Triage", Description: "Clear accumulated requests and file them as tasks", Function: "inbox_triage", Priority: PriorityMedium},
	},
	time.Tuesday: {
		{Name: "Content Creation", Description: "Draft posts, updates and documentation", Function: "content_creation", Priority: PriorityHigh},
		{Name: "Research Follow-up", Description: "Chase open questions left from Monday's analysis", Function: "research_followup", Priority: PriorityMedium},
	},
	time.Wednesday: {
		{Name: "Market Research", Description: "Survey the competitive landscape and summarize movements", Function: "market_research", Priority: PriorityHigh},
		{Name: "Content Creation", Description: "Draft posts, updates and documentation", Function: "content_creation", Priority: PriorityMedium},
		{Name: "Process Review", Description: "Look for friction in recurring workflows", Function: "process_review", Priority: PriorityLow},
	},
	time.Thursday: {
		{Name: "Outreach", Description: "Draft and queue partner and community outreach", Function: "outreach", Priority: PriorityHigh},
		{Name: "Research Follow-up", Description: "Chase open questions from earlier in the week", Function: "research_followup", Priority: PriorityLow},
	},
	time.Friday: {
		{Name: "Weekly Review", Description: "Summarize what shipped, what slipped and why", Function: "weekly_review", Priority: PriorityHigh},
		{Name: "Inbox Triage", Description: "Clear accumulated requests and file them as tasks", Function: "inbox_triage", Priority: PriorityMedium},
		{Name: "Knowledge Curation", Description: "File the week's findings into long-term notes", Function: "knowledge_curation", Priority: PriorityLow},
	},
	time.Saturday: {
		{Name: "Light Reading", Description: "Catch up on saved articles and long-form material", Function: "light_reading", Priority: PriorityLow},
	},
	time.Sunday: {
		{Name: "Week Preparation", Description: "Pre-stage Monday's planning inputs", Function: "week_preparation", Priority: PriorityMedium},
	},
}

// ForDay returns the ordered behavior list for a weekday. The returned slice
// is a copy; callers may not mutate the catalog.
func ForDay(day time.Weekday) []Behavior {
	behaviors := catalog[day]
	out := make([]Behavior, len(behaviors))
	copy(out, behaviors)
	return out
}

// Today returns the behavior list for the weekday of t
func Today(t time.Time) []Behavior {
	return ForDay(t.Weekday())
}
