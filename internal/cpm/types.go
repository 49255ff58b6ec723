package cpm

// Result holds the complete critical path analysis of one task graph.
// Offsets are whole days relative to the project start date.
type Result struct {
	Tasks     map[string]*TaskSchedule
	TopoOrder []string

	// CriticalPath is the single ordered chain that determines the project end.
	CriticalPath []string
	// CriticalTasks lists every zero-slack task ordered by early start, then id.
	CriticalTasks        []string
	CriticalDependencies []string

	// TotalDuration is the project makespan (max early finish).
	TotalDuration int
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string
	Duration   int
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	Slack      int
	IsCritical bool
}

// IsCriticalDependency reports whether the dependency id is on a zero-slack chain.
func (r *Result) IsCriticalDependency(depID string) bool {
	for _, id := range r.CriticalDependencies {
		if id == depID {
			return true
		}
	}
	return false
}
