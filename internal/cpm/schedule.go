package cpm

import (
	"time"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

// Schedule validates w, runs the critical path analysis and returns a new
// WBS carrying planned dates, slack, critical flags and progress rollups.
// The input WBS is not modified.
func Schedule(w model.WBS) (model.WBS, *Result, error) {
	start, err := projectStart(w)
	if err != nil {
		return model.WBS{}, nil, err
	}

	g, err := taskgraph.FromWBS(w)
	if err != nil {
		return model.WBS{}, nil, traversalError(err)
	}
	if err := g.Validate(); err != nil {
		return model.WBS{}, nil, err
	}

	result, err := Analyze(start, g)
	if err != nil {
		return model.WBS{}, nil, err
	}

	out := w.Clone()
	out.StartDate = start
	out.EndDate = AddDays(start, result.TotalDuration)
	out.CriticalPath = append([]string(nil), result.CriticalPath...)
	out.CriticalPathDuration = result.TotalDuration

	out.Tasks = g.Tasks()
	for i := range out.Tasks {
		t := &out.Tasks[i]
		ts := result.Tasks[t.ID]
		t.PlannedStart = AddDays(start, ts.ES)
		t.PlannedEnd = AddDays(start, ts.EF)
		t.Slack = ts.Slack
		t.IsCritical = ts.IsCritical
	}

	out.Dependencies = g.Dependencies()
	for i := range out.Dependencies {
		d := &out.Dependencies[i]
		d.IsCritical = result.IsCriticalDependency(d.ID)
	}

	out.TotalTasks, out.CompletedTasks, out.OverallProgress = Progress(out.Tasks)
	return out, result, nil
}

// Progress returns the task counts and the duration-weighted progress of
// non-cancelled tasks. Zero-duration tasks count with weight one when no
// task has a positive duration.
func Progress(tasks []model.Task) (total, completed int, overall float64) {
	var weighted, weights, plain float64
	counted := 0
	for _, t := range tasks {
		total++
		if t.Status == model.TaskStatusCompleted {
			completed++
		}
		if t.Status == model.TaskStatusCancelled {
			continue
		}
		counted++
		plain += float64(t.Progress)
		if t.Duration > 0 {
			weighted += float64(t.Progress) * float64(t.Duration)
			weights += float64(t.Duration)
		}
	}

	switch {
	case weights > 0:
		overall = weighted / weights
	case counted > 0:
		overall = plain / float64(counted)
	}
	return total, completed, overall
}

// projectStart is the WBS start date, or the earliest planned start when
// the WBS has none.
func projectStart(w model.WBS) (time.Time, error) {
	if !w.StartDate.IsZero() {
		return Day(w.StartDate), nil
	}

	var earliest time.Time
	for _, t := range w.Tasks {
		if t.PlannedStart.IsZero() {
			continue
		}
		if earliest.IsZero() || t.PlannedStart.Before(earliest) {
			earliest = t.PlannedStart
		}
	}
	if earliest.IsZero() {
		return time.Time{}, model.NewValidationError("start_date", "wbs has no start date and no task has a planned start")
	}
	return Day(earliest), nil
}
