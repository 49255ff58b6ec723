package model

import "time"

type TaskType string

type TaskStatus string

type Priority string

const (
	TaskTypeMilestone   TaskType = "milestone"
	TaskTypeTask        TaskType = "task"
	TaskTypeSubtask     TaskType = "subtask"
	TaskTypeDeliverable TaskType = "deliverable"
)

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeMilestone, TaskTypeTask, TaskTypeSubtask, TaskTypeDeliverable:
		return true
	}
	return false
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked, TaskStatusCancelled:
		return true
	}
	return false
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a schedulable unit of work. Durations, slack and lags are whole days.
type Task struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	ParentID  *string  `json:"parent_id,omitempty"`
	ChildIDs  []string `json:"child_ids,omitempty"`

	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        TaskType   `json:"type"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`

	Duration     int        `json:"duration"`
	PlannedStart time.Time  `json:"planned_start"`
	PlannedEnd   time.Time  `json:"planned_end"`
	ActualStart  *time.Time `json:"actual_start,omitempty"`
	ActualEnd    *time.Time `json:"actual_end,omitempty"`

	// NotBefore is a start-no-earlier-than constraint honoured by the forward pass.
	NotBefore *time.Time `json:"not_before,omitempty"`

	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`

	// Written only by the critical path calculator.
	IsCritical bool `json:"is_critical"`
	Slack      int  `json:"slack"`

	SourceFact FactType `json:"source_fact,omitempty"`
	FactID     string   `json:"fact_id,omitempty"`

	Progress      int      `json:"progress"`
	CompletedWork float64  `json:"completed_work"`
	TotalWork     float64  `json:"total_work"`
	Resources     []string `json:"resources,omitempty"`

	// Metadata holds free-form UI annotations only.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy so hypothetical schedules never alias live state.
func (t Task) Clone() Task {
	c := t
	if t.ParentID != nil {
		c.ParentID = Ptr(*t.ParentID)
	}
	if t.ActualStart != nil {
		c.ActualStart = Ptr(*t.ActualStart)
	}
	if t.ActualEnd != nil {
		c.ActualEnd = Ptr(*t.ActualEnd)
	}
	if t.NotBefore != nil {
		c.NotBefore = Ptr(*t.NotBefore)
	}
	c.ChildIDs = cloneStrings(t.ChildIDs)
	c.Dependencies = cloneStrings(t.Dependencies)
	c.Dependents = cloneStrings(t.Dependents)
	c.Resources = cloneStrings(t.Resources)
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// SharesResource reports whether both tasks are assigned at least one common resource.
func (t Task) SharesResource(other Task) bool {
	for _, r := range t.Resources {
		for _, o := range other.Resources {
			if r == o {
				return true
			}
		}
	}
	return false
}

type DependencyType string

const (
	DependencyFinishToStart  DependencyType = "finish_to_start"
	DependencyStartToStart   DependencyType = "start_to_start"
	DependencyFinishToFinish DependencyType = "finish_to_finish"
	DependencyStartToFinish  DependencyType = "start_to_finish"
)

func (d DependencyType) IsValid() bool {
	switch d {
	case DependencyFinishToStart, DependencyStartToStart, DependencyFinishToFinish, DependencyStartToFinish:
		return true
	}
	return false
}

// Dependency is a directed edge From -> To. Lag may be negative (lead time).
type Dependency struct {
	ID         string         `json:"id"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       DependencyType `json:"type"`
	Lag        int            `json:"lag"`
	IsCritical bool           `json:"is_critical"`
}

func DependencyID(from, to string) string {
	return from + "->" + to
}

// Ptr is a helper to create a pointer from a value.
func Ptr[T any](v T) *T {
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
