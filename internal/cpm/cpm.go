// Package cpm implements the critical path method over a task graph.
// Every function here is pure: inputs are never mutated and identical
// inputs produce identical results.
package cpm

import (
	"errors"
	"sort"
	"time"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

// Compute runs the forward and backward passes over tasks and deps.
// Tasks with no predecessors start at offset 0, which callers map to start.
func Compute(start time.Time, tasks []model.Task, deps []model.Dependency) (*Result, error) {
	projectID := ""
	if len(tasks) > 0 {
		projectID = tasks[0].ProjectID
	}

	g, err := taskgraph.Build(projectID, tasks, deps)
	if err != nil {
		return nil, traversalError(err)
	}
	return Analyze(start, g)
}

// Analyze performs critical path analysis on an already built graph.
func Analyze(start time.Time, g *taskgraph.Graph) (*Result, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, traversalError(err)
	}

	result := &Result{
		Tasks:     make(map[string]*TaskSchedule, len(order)),
		TopoOrder: order,
	}

	tasks := make(map[string]model.Task, len(order))
	for _, id := range order {
		t, _ := g.Task(id)
		tasks[id] = t
		result.Tasks[id] = &TaskSchedule{TaskID: id, Duration: duration(t)}
	}

	// Forward pass: ES is the tightest lower bound over all incoming edges.
	for _, id := range order {
		t := tasks[id]
		ts := result.Tasks[id]

		es := 0
		if t.NotBefore != nil {
			es = max(es, DaysBetween(start, *t.NotBefore))
		}
		for _, pred := range t.Dependencies {
			d, _ := g.Dependency(pred, id)
			es = max(es, forwardBound(d, result.Tasks[pred], ts.Duration))
		}
		ts.ES = es
		ts.EF = es + ts.Duration
	}

	projectEnd := 0
	for _, ts := range result.Tasks {
		projectEnd = max(projectEnd, ts.EF)
	}
	result.TotalDuration = projectEnd

	// Backward pass in reverse topological order.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]

		lf := projectEnd
		for _, succ := range tasks[id].Dependents {
			d, _ := g.Dependency(id, succ)
			lf = min(lf, backwardBound(d, result.Tasks[succ], ts.Duration))
		}
		ts.LF = lf
		ts.LS = lf - ts.Duration
		ts.Slack = ts.LS - ts.ES
		ts.IsCritical = ts.Slack == 0
	}

	for _, id := range order {
		if result.Tasks[id].IsCritical {
			result.CriticalTasks = append(result.CriticalTasks, id)
		}
	}
	sort.SliceStable(result.CriticalTasks, func(i, j int) bool {
		a, b := result.Tasks[result.CriticalTasks[i]], result.Tasks[result.CriticalTasks[j]]
		if a.ES != b.ES {
			return a.ES < b.ES
		}
		return a.TaskID < b.TaskID
	})

	for _, d := range g.Dependencies() {
		if binding(d, result) {
			result.CriticalDependencies = append(result.CriticalDependencies, d.ID)
		}
	}

	result.CriticalPath = criticalChain(g, tasks, result)
	return result, nil
}

// forwardBound is the earliest start of the successor implied by edge d.
func forwardBound(d model.Dependency, pred *TaskSchedule, succDuration int) int {
	switch d.Type {
	case model.DependencyStartToStart:
		return pred.ES + d.Lag
	case model.DependencyFinishToFinish:
		return pred.EF + d.Lag - succDuration
	case model.DependencyStartToFinish:
		return pred.ES + d.Lag - succDuration
	default:
		return pred.EF + d.Lag
	}
}

// backwardBound is the latest finish of the predecessor implied by edge d.
func backwardBound(d model.Dependency, succ *TaskSchedule, predDuration int) int {
	switch d.Type {
	case model.DependencyStartToStart:
		return succ.LS - d.Lag + predDuration
	case model.DependencyFinishToFinish:
		return succ.LF - d.Lag
	case model.DependencyStartToFinish:
		return succ.LF - d.Lag + predDuration
	default:
		return succ.LS - d.Lag
	}
}

// binding reports whether both endpoints are critical and the edge is the
// one holding the successor's early start in place.
func binding(d model.Dependency, r *Result) bool {
	from, to := r.Tasks[d.From], r.Tasks[d.To]
	if from == nil || to == nil || !from.IsCritical || !to.IsCritical {
		return false
	}
	return forwardBound(d, from, to.Duration) == to.ES
}

// criticalChain walks back from the critical task finishing last, following
// binding critical edges. Ties resolve to the smallest task id.
func criticalChain(g *taskgraph.Graph, tasks map[string]model.Task, r *Result) []string {
	var end *TaskSchedule
	for _, id := range r.CriticalTasks {
		ts := r.Tasks[id]
		if ts.EF != r.TotalDuration {
			continue
		}
		if end == nil || ts.TaskID < end.TaskID {
			end = ts
		}
	}
	if end == nil {
		return nil
	}

	chain := []string{end.TaskID}
	current := end.TaskID
	for {
		next := ""
		for _, pred := range tasks[current].Dependencies {
			d, _ := g.Dependency(pred, current)
			if !binding(d, r) {
				continue
			}
			if next == "" || pred < next {
				next = pred
			}
		}
		if next == "" {
			break
		}
		chain = append(chain, next)
		current = next
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func duration(t model.Task) int {
	if t.Status == model.TaskStatusCancelled || t.Duration < 0 {
		return 0
	}
	return t.Duration
}

func traversalError(err error) error {
	if !errors.Is(err, model.ErrCycleDetected) {
		return err
	}
	ee, ok := model.AsEngineError(err)
	if !ok {
		return &model.EngineError{Kind: model.ErrNotATraversableGraph, Detail: err.Error()}
	}
	return &model.EngineError{
		Kind:         model.ErrNotATraversableGraph,
		TaskID:       ee.TaskID,
		DependencyID: ee.DependencyID,
		Detail:       "dependency graph contains a cycle",
	}
}
