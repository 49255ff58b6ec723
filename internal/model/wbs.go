package model

import "time"

type WBSStatus string

const (
	WBSStatusDraft     WBSStatus = "draft"
	WBSStatusActive    WBSStatus = "active"
	WBSStatusCompleted WBSStatus = "completed"
	WBSStatusArchived  WBSStatus = "archived"
)

// SourceFactRef names an external fact a WBS was derived from.
type SourceFactRef struct {
	FactID      string   `json:"fact_id"`
	FactType    FactType `json:"fact_type"`
	FactVersion int64    `json:"fact_version"`
}

// ReplanPolicy is the per-project confirmation policy for generated proposals.
// Zero values fall back to the service configuration.
type ReplanPolicy struct {
	AutoApproveSeverities []Severity `json:"auto_approve_severities,omitempty"`
	Approver              string     `json:"approver,omitempty"`
	ApprovalWindowHours   int        `json:"approval_window_hours,omitempty"`
}

func (p ReplanPolicy) AllowsAutoApprove(s Severity) bool {
	for _, allowed := range p.AutoApproveSeverities {
		if allowed == s {
			return true
		}
	}
	return false
}

// WBS is the schedulable snapshot of one project. A WBS value is never
// rewritten once superseded; re-planning produces a new value.
type WBS struct {
	ProjectID    string       `json:"project_id"`
	Version      int64        `json:"version"`
	Status       WBSStatus    `json:"status"`
	Tasks        []Task       `json:"tasks"`
	Dependencies []Dependency `json:"dependencies"`

	CriticalPath         []string `json:"critical_path"`
	CriticalPathDuration int      `json:"critical_path_duration"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	OverallProgress float64 `json:"overall_progress"`
	CompletedTasks  int     `json:"completed_tasks"`
	TotalTasks      int     `json:"total_tasks"`

	SourceFacts []SourceFactRef `json:"source_facts,omitempty"`
	Policy      ReplanPolicy    `json:"policy"`

	CreatedAt         time.Time  `json:"created_at"`
	LastRegeneratedAt *time.Time `json:"last_regenerated_at,omitempty"`
}

// Clone returns a deep copy of the WBS.
func (w WBS) Clone() WBS {
	c := w
	c.Tasks = make([]Task, len(w.Tasks))
	for i, t := range w.Tasks {
		c.Tasks[i] = t.Clone()
	}
	c.Dependencies = make([]Dependency, len(w.Dependencies))
	copy(c.Dependencies, w.Dependencies)
	c.CriticalPath = cloneStrings(w.CriticalPath)
	if w.SourceFacts != nil {
		c.SourceFacts = make([]SourceFactRef, len(w.SourceFacts))
		copy(c.SourceFacts, w.SourceFacts)
	}
	if w.Policy.AutoApproveSeverities != nil {
		c.Policy.AutoApproveSeverities = make([]Severity, len(w.Policy.AutoApproveSeverities))
		copy(c.Policy.AutoApproveSeverities, w.Policy.AutoApproveSeverities)
	}
	if w.LastRegeneratedAt != nil {
		c.LastRegeneratedAt = Ptr(*w.LastRegeneratedAt)
	}
	return c
}

// Task returns the task with the given id.
func (w WBS) Task(id string) (Task, bool) {
	for _, t := range w.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (w WBS) HasSourceFact(factID string) bool {
	for _, f := range w.SourceFacts {
		if f.FactID == factID {
			return true
		}
	}
	return false
}

// TimelineStats summarises a live WBS for dashboards and reports.
type TimelineStats struct {
	ProjectID            string     `json:"project_id"`
	Version              int64      `json:"version"`
	Status               WBSStatus  `json:"status"`
	TotalTasks           int        `json:"total_tasks"`
	CompletedTasks       int        `json:"completed_tasks"`
	InProgressTasks      int        `json:"in_progress_tasks"`
	BlockedTasks         int        `json:"blocked_tasks"`
	NotStartedTasks      int        `json:"not_started_tasks"`
	CancelledTasks       int        `json:"cancelled_tasks"`
	CriticalTasks        int        `json:"critical_tasks"`
	OverallProgress      float64    `json:"overall_progress"`
	CriticalPathLength   int        `json:"critical_path_length"`
	CriticalPathDuration int        `json:"critical_path_duration"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	DaysRemaining        int        `json:"days_remaining"`
	ActiveTriggers       int        `json:"active_triggers"`
	RePlanCount          int        `json:"replan_count"`
	LastRegeneratedAt    *time.Time `json:"last_regenerated_at,omitempty"`
}
