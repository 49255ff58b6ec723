// Package taskgraph holds the WBS task/dependency graph and its structural
// invariants: referential integrity, mirrored edge lists and acyclicity.
package taskgraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

// Graph is a mutable task graph for a single project. It is not safe for
// concurrent use; callers own a Graph for the duration of one computation.
type Graph struct {
	projectID string
	tasks     map[string]*model.Task
	order     []string
	deps      map[string]*model.Dependency
}

func New(projectID string) *Graph {
	return &Graph{
		projectID: projectID,
		tasks:     make(map[string]*model.Task),
		deps:      make(map[string]*model.Dependency),
	}
}

// FromWBS builds a graph from a WBS snapshot. Explicit dependencies win; a
// task-level predecessor with no explicit edge becomes finish_to_start, lag 0.
func FromWBS(w model.WBS) (*Graph, error) {
	return Build(w.ProjectID, w.Tasks, w.Dependencies)
}

// Build constructs a graph from tasks and dependencies, rejecting unknown
// endpoints and cycles.
func Build(projectID string, tasks []model.Task, deps []model.Dependency) (*Graph, error) {
	g := New(projectID)
	for _, t := range tasks {
		if err := g.AddTask(t); err != nil {
			return nil, err
		}
	}

	for _, d := range deps {
		if err := g.AddDependency(d.From, d.To, d.Type, d.Lag); err != nil {
			return nil, err
		}
	}

	// Implicit predecessor lists, in a stable order.
	for _, t := range tasks {
		preds := append([]string(nil), t.Dependencies...)
		sort.Strings(preds)
		for _, pred := range preds {
			if _, ok := g.deps[model.DependencyID(pred, t.ID)]; ok {
				continue
			}
			if err := g.AddDependency(pred, t.ID, model.DependencyFinishToStart, 0); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// AddTask inserts a task. Edge lists on the input are ignored; edges are
// added through AddDependency so both directions stay mirrored.
func (g *Graph) AddTask(t model.Task) error {
	if t.ID == "" {
		return model.NewValidationError("id", "task id is required")
	}
	if _, exists := g.tasks[t.ID]; exists {
		return &model.EngineError{Kind: model.ErrValidation, TaskID: t.ID, Detail: "duplicate task id"}
	}
	if t.ProjectID == "" {
		t.ProjectID = g.projectID
	}
	if t.ProjectID != g.projectID {
		return &model.EngineError{
			Kind:   model.ErrValidation,
			TaskID: t.ID,
			Detail: fmt.Sprintf("task belongs to project %q, graph is %q", t.ProjectID, g.projectID),
		}
	}
	if t.Type == "" {
		t.Type = model.TaskTypeTask
	}
	if t.Status == "" {
		t.Status = model.TaskStatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}

	c := t.Clone()
	c.Dependencies = nil
	c.Dependents = nil
	g.tasks[c.ID] = &c
	g.order = append(g.order, c.ID)
	return nil
}

// AddDependency adds the edge from -> to. It fails with ErrUnknownTask if
// either endpoint is absent and with ErrCycleDetected if to already reaches
// from; in both cases the graph is left unchanged.
func (g *Graph) AddDependency(from, to string, typ model.DependencyType, lag int) error {
	depID := model.DependencyID(from, to)
	fromTask, ok := g.tasks[from]
	if !ok {
		return &model.EngineError{Kind: model.ErrUnknownTask, TaskID: from, DependencyID: depID}
	}
	toTask, ok := g.tasks[to]
	if !ok {
		return &model.EngineError{Kind: model.ErrUnknownTask, TaskID: to, DependencyID: depID}
	}
	if typ == "" {
		typ = model.DependencyFinishToStart
	}
	if !typ.IsValid() {
		return &model.EngineError{Kind: model.ErrValidation, DependencyID: depID, Detail: fmt.Sprintf("unknown dependency type %q", typ)}
	}
	if _, exists := g.deps[depID]; exists {
		return &model.EngineError{Kind: model.ErrValidation, DependencyID: depID, Detail: "duplicate dependency"}
	}
	if from == to || g.Reachable(to, from) {
		return &model.EngineError{Kind: model.ErrCycleDetected, TaskID: to, DependencyID: depID}
	}

	g.deps[depID] = &model.Dependency{ID: depID, From: from, To: to, Type: typ, Lag: lag}
	toTask.Dependencies = insertSorted(toTask.Dependencies, from)
	fromTask.Dependents = insertSorted(fromTask.Dependents, to)
	return nil
}

// RemoveDependency deletes the edge from -> to, if present.
func (g *Graph) RemoveDependency(from, to string) error {
	depID := model.DependencyID(from, to)
	if _, ok := g.deps[depID]; !ok {
		return &model.EngineError{Kind: model.ErrValidation, DependencyID: depID, Detail: "dependency does not exist"}
	}
	delete(g.deps, depID)
	if t, ok := g.tasks[to]; ok {
		t.Dependencies = remove(t.Dependencies, from)
	}
	if t, ok := g.tasks[from]; ok {
		t.Dependents = remove(t.Dependents, to)
	}
	return nil
}

// RemoveTask deletes a task together with every edge touching it. Children
// of the removed task lose their parent link.
func (g *Graph) RemoveTask(id string) error {
	t, ok := g.tasks[id]
	if !ok {
		return &model.EngineError{Kind: model.ErrUnknownTask, TaskID: id}
	}

	for _, pred := range append([]string(nil), t.Dependencies...) {
		_ = g.RemoveDependency(pred, id)
	}
	for _, succ := range append([]string(nil), t.Dependents...) {
		_ = g.RemoveDependency(id, succ)
	}

	if t.ParentID != nil {
		if parent, ok := g.tasks[*t.ParentID]; ok {
			parent.ChildIDs = remove(parent.ChildIDs, id)
		}
	}
	for _, childID := range t.ChildIDs {
		if child, ok := g.tasks[childID]; ok {
			child.ParentID = nil
		}
	}

	delete(g.tasks, id)
	g.order = remove(g.order, id)
	return nil
}

// Validate checks every structural invariant and returns all violations joined.
func (g *Graph) Validate() error {
	var errs []error

	if _, err := g.TopoOrder(); err != nil {
		errs = append(errs, err)
	}

	for _, id := range g.order {
		t := g.tasks[id]
		for _, pred := range t.Dependencies {
			p, ok := g.tasks[pred]
			if !ok {
				errs = append(errs, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: pred, DependencyID: model.DependencyID(pred, id)})
				continue
			}
			if !contains(p.Dependents, id) {
				errs = append(errs, &model.EngineError{Kind: model.ErrValidation, TaskID: pred, DependencyID: model.DependencyID(pred, id), Detail: "dependents list is not mirrored"})
			}
			if _, ok := g.deps[model.DependencyID(pred, id)]; !ok {
				errs = append(errs, &model.EngineError{Kind: model.ErrValidation, TaskID: id, DependencyID: model.DependencyID(pred, id), Detail: "predecessor has no dependency record"})
			}
		}
		for _, succ := range t.Dependents {
			s, ok := g.tasks[succ]
			if !ok {
				errs = append(errs, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: succ, DependencyID: model.DependencyID(id, succ)})
				continue
			}
			if !contains(s.Dependencies, id) {
				errs = append(errs, &model.EngineError{Kind: model.ErrValidation, TaskID: succ, DependencyID: model.DependencyID(id, succ), Detail: "dependencies list is not mirrored"})
			}
		}
		errs = append(errs, validateTask(t)...)
		if t.ParentID != nil {
			parent, ok := g.tasks[*t.ParentID]
			if !ok {
				errs = append(errs, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: *t.ParentID, Detail: fmt.Sprintf("parent of %s", id)})
			} else if !contains(parent.ChildIDs, id) {
				errs = append(errs, &model.EngineError{Kind: model.ErrValidation, TaskID: id, Field: "parent_id", Detail: "parent does not list task as child"})
			}
		}
	}

	for _, d := range g.sortedDeps() {
		if _, ok := g.tasks[d.From]; !ok {
			errs = append(errs, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: d.From, DependencyID: d.ID})
		}
		if _, ok := g.tasks[d.To]; !ok {
			errs = append(errs, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: d.To, DependencyID: d.ID})
		}
	}

	return errors.Join(errs...)
}

func validateTask(t *model.Task) []error {
	var errs []error
	invalid := func(field, detail string) {
		errs = append(errs, &model.EngineError{Kind: model.ErrValidation, TaskID: t.ID, Field: field, Detail: detail})
	}

	if !t.Type.IsValid() {
		invalid("type", fmt.Sprintf("unknown task type %q", t.Type))
	}
	if !t.Status.IsValid() {
		invalid("status", fmt.Sprintf("unknown task status %q", t.Status))
	}
	if !t.Priority.IsValid() {
		invalid("priority", fmt.Sprintf("unknown priority %q", t.Priority))
	}
	if t.Duration < 0 {
		invalid("duration", "duration must not be negative")
	}
	if t.Type == model.TaskTypeMilestone && t.Duration != 0 {
		invalid("duration", "milestones must have zero duration")
	}
	if !t.PlannedStart.IsZero() && !t.PlannedEnd.IsZero() && t.PlannedEnd.Before(t.PlannedStart) {
		invalid("planned_end", "planned end is before planned start")
	}
	if t.ActualStart != nil && t.ActualEnd != nil && t.ActualEnd.Before(*t.ActualStart) {
		invalid("actual_end", "actual end is before actual start")
	}
	if t.Progress < 0 || t.Progress > 100 {
		invalid("progress", "progress must be within [0,100]")
	}
	if t.Status == model.TaskStatusCompleted && t.Progress != 100 {
		invalid("progress", "completed task must have progress 100")
	}
	if t.CompletedWork < 0 || t.TotalWork < 0 || (t.TotalWork > 0 && t.CompletedWork > t.TotalWork) {
		invalid("completed_work", "completed work must be within [0,total_work]")
	}
	return errs
}

// TopoOrder returns a topological order using Kahn's algorithm with a sorted
// frontier, so identical graphs always produce identical orders.
func (g *Graph) TopoOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.tasks))
	for id, t := range g.tasks {
		inDegree[id] = len(t.Dependencies)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []string
		for _, succ := range g.tasks[node].Dependents {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(order) != len(g.tasks) {
		return nil, &model.EngineError{
			Kind:   model.ErrCycleDetected,
			Detail: fmt.Sprintf("%d of %d tasks sorted", len(order), len(g.tasks)),
		}
	}
	return order, nil
}

// Reachable reports whether to can be reached from from by following edges.
func (g *Graph) Reachable(from, to string) bool {
	visited := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == to {
			return true
		}
		if visited[node] {
			continue
		}
		visited[node] = true
		if t, ok := g.tasks[node]; ok {
			stack = append(stack, t.Dependents...)
		}
	}
	return false
}

// TransitiveDependents returns every task reachable from seeds, excluding
// the seeds themselves, sorted by id.
func (g *Graph) TransitiveDependents(seeds []string) []string {
	seen := make(map[string]bool)
	for _, s := range seeds {
		seen[s] = true
	}

	var out []string
	stack := append([]string(nil), seeds...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, ok := g.tasks[node]
		if !ok {
			continue
		}
		for _, succ := range t.Dependents {
			if seen[succ] {
				continue
			}
			seen[succ] = true
			out = append(out, succ)
			stack = append(stack, succ)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) Has(id string) bool {
	_, ok := g.tasks[id]
	return ok
}

// Task returns a copy of the task with the given id.
func (g *Graph) Task(id string) (model.Task, bool) {
	t, ok := g.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// UpdateTask replaces scheduling attributes of an existing task while
// preserving its edges.
func (g *Graph) UpdateTask(id string, fn func(t *model.Task)) error {
	t, ok := g.tasks[id]
	if !ok {
		return &model.EngineError{Kind: model.ErrUnknownTask, TaskID: id}
	}
	deps, dependents := t.Dependencies, t.Dependents
	fn(t)
	t.ID = id
	t.Dependencies, t.Dependents = deps, dependents
	return nil
}

func (g *Graph) Len() int {
	return len(g.tasks)
}

// Tasks returns copies of all tasks in insertion order.
func (g *Graph) Tasks() []model.Task {
	out := make([]model.Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id].Clone())
	}
	return out
}

// Dependencies returns copies of all edges sorted by (from, to).
func (g *Graph) Dependencies() []model.Dependency {
	sorted := g.sortedDeps()
	out := make([]model.Dependency, len(sorted))
	for i, d := range sorted {
		out[i] = *d
	}
	return out
}

func (g *Graph) Dependency(from, to string) (model.Dependency, bool) {
	d, ok := g.deps[model.DependencyID(from, to)]
	if !ok {
		return model.Dependency{}, false
	}
	return *d, true
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New(g.projectID)
	for _, id := range g.order {
		t := g.tasks[id].Clone()
		c.tasks[id] = &t
	}
	c.order = append([]string(nil), g.order...)
	for id, d := range g.deps {
		dc := *d
		c.deps[id] = &dc
	}
	return c
}

func (g *Graph) sortedDeps() []*model.Dependency {
	out := make([]*model.Dependency, 0, len(g.deps))
	for _, d := range g.deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
