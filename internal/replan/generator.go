// Package replan turns a re-plan trigger into a proposal: a hypothetical
// schedule computed on a copy of the live task graph, with the shifts,
// cost, risk and recommendations a reviewer needs to decide on it.
package replan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/EI94/Urbanova-sub017/internal/cpm"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

type Generator struct {
	cfg   Config
	newID func() int64
	now   func() time.Time
}

func NewGenerator(cfg Config, newID func() int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = DefaultMaxRecommendations
	}
	return &Generator{cfg: cfg, newID: newID, now: now}
}

// edit is the schedule change implied by a trigger, applied to a graph copy.
type edit struct {
	direct          map[string]bool
	reasons         map[string]string
	newDependencies []model.Dependency
	resourceChanges []model.ResourceChange
}

// Propose computes a draft proposal for trigger against current. liveVersion
// is the project's live WBS version; a mismatch means current is stale.
func (g *Generator) Propose(trigger *model.Trigger, current model.WBS, liveVersion int64) (*model.Proposal, error) {
	if current.Version != liveVersion {
		return nil, &model.EngineError{
			Kind:      model.ErrStaleBaseVersion,
			TriggerID: trigger.ID,
			Detail:    fmt.Sprintf("proposal base version %d, live version %d", current.Version, liveVersion),
		}
	}

	direct := trigger.Impact.DirectTaskIDs
	if len(direct) == 0 {
		direct = trigger.Impact.AffectedTaskIDs
	}
	if len(direct) == 0 {
		return nil, &model.EngineError{Kind: model.ErrNoAffectedTasks, TriggerID: trigger.ID}
	}

	base, baseResult, err := cpm.Schedule(current)
	if err != nil {
		return nil, fmt.Errorf("scheduling base timeline: %w", err)
	}

	graph, err := taskgraph.FromWBS(base)
	if err != nil {
		return nil, err
	}
	e, err := g.applyEdit(graph, trigger, direct)
	if err != nil {
		return nil, err
	}

	edited := base.Clone()
	edited.Tasks = graph.Tasks()
	edited.Dependencies = graph.Dependencies()
	if trigger.FactID != "" && !edited.HasSourceFact(trigger.FactID) {
		edited.SourceFacts = append(edited.SourceFacts, model.SourceFactRef{
			FactID:      trigger.FactID,
			FactType:    trigger.FactType,
			FactVersion: trigger.FactVersion,
		})
	}

	proposed, proposedResult, err := cpm.Schedule(edited)
	if err != nil {
		return nil, fmt.Errorf("scheduling proposed timeline: %w", err)
	}

	shifts := g.taskShifts(trigger, base, proposed, baseResult, proposedResult, e)
	totalDelay := cpm.DaysBetween(base.EndDate, proposed.EndDate)
	cost := g.costImpact(totalDelay, trigger.Impact.EstimatedCostDelta)
	cpChanges := criticalPathChanges(baseResult, proposedResult, shifts)
	risk := g.assessRisk(trigger, baseResult, proposedResult)

	now := g.now().UTC()
	p := &model.Proposal{
		ID:               g.newID(),
		TriggerID:        trigger.ID,
		ProjectID:        current.ProjectID,
		BaseVersion:      current.Version,
		CurrentTimeline:  current.Clone(),
		ProposedTimeline: proposed,
		Changes: model.ProposalChanges{
			ShiftedTasks:    shifts,
			NewDependencies: e.newDependencies,
			ResourceChanges: e.resourceChanges,
			CostImpact:      cost,
		},
		Impact: model.ProposalImpact{
			TotalDelayDays:      totalDelay,
			OriginalDuration:    baseResult.TotalDuration,
			ProposedDuration:    proposedResult.TotalDuration,
			CriticalPathChanges: cpChanges,
			RiskAssessment:      risk,
		},
		Status:    model.ProposalStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Impact.Recommendations = g.recommend(trigger, p, base, proposed, baseResult, proposedResult)
	p.Confirmation = g.confirmation(trigger, current.Policy, cpChanges, now)
	return p, nil
}

func (g *Generator) applyEdit(graph *taskgraph.Graph, trigger *model.Trigger, direct []string) (*edit, error) {
	e := &edit{direct: make(map[string]bool), reasons: make(map[string]string)}
	delay := trigger.Impact.EstimatedDelayDays

	for _, id := range direct {
		if !graph.Has(id) {
			return nil, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: id, TriggerID: trigger.ID}
		}
		e.direct[id] = true
	}

	switch trigger.Type {
	case model.TriggerTypeScopeChange:
		if err := extend(graph, direct, delay, e); err != nil {
			return nil, err
		}

	case model.TriggerTypeResourceConflict:
		if err := serialize(graph, trigger, direct, e); err != nil {
			return nil, err
		}
		if delay > 0 {
			for _, id := range direct {
				if err := shiftStart(graph, id, delay); err != nil {
					return nil, err
				}
				if e.reasons[id] == "" {
					e.reasons[id] = fmt.Sprintf("start delayed %d days by resource conflict", delay)
				}
			}
		}

	default:
		if !trigger.Type.ShiftsSchedule() {
			return nil, &model.EngineError{
				Kind:      model.ErrValidation,
				TriggerID: trigger.ID,
				Field:     "type",
				Detail:    fmt.Sprintf("no schedule edit for trigger type %q", trigger.Type),
			}
		}
		for _, id := range direct {
			if err := shiftStart(graph, id, delay); err != nil {
				return nil, err
			}
			e.reasons[id] = fmt.Sprintf("start delayed %d days by %s", delay, trigger.Type)
		}
	}

	return e, nil
}

// shiftStart pins the task to start no earlier than its planned start plus days.
func shiftStart(graph *taskgraph.Graph, id string, days int) error {
	if days <= 0 {
		return nil
	}
	return graph.UpdateTask(id, func(t *model.Task) {
		target := cpm.AddDays(t.PlannedStart, days)
		if t.NotBefore == nil || t.NotBefore.Before(target) {
			t.NotBefore = model.Ptr(target)
		}
	})
}

// extend lengthens the direct tasks by days; milestones keep zero duration
// and move instead. Resources held by extended tasks are reported as extended.
func extend(graph *taskgraph.Graph, direct []string, days int, e *edit) error {
	held := make(map[string][]string)
	for _, id := range direct {
		t, _ := graph.Task(id)
		if t.Type == model.TaskTypeMilestone {
			if err := shiftStart(graph, id, days); err != nil {
				return err
			}
			e.reasons[id] = fmt.Sprintf("milestone moved %d days by scope change", days)
			continue
		}
		if err := graph.UpdateTask(id, func(t *model.Task) { t.Duration += days }); err != nil {
			return err
		}
		e.reasons[id] = fmt.Sprintf("duration extended by %d days for scope change", days)
		if days <= 0 {
			continue
		}
		for _, r := range t.Resources {
			held[r] = append(held[r], id)
		}
	}

	resources := make([]string, 0, len(held))
	for r := range held {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		ids := held[r]
		sort.Strings(ids)
		e.resourceChanges = append(e.resourceChanges, model.ResourceChange{
			Resource: r,
			TaskIDs:  ids,
			Action:   model.ResourceChangeExtended,
			Note:     fmt.Sprintf("%s booked %d more days", r, days),
		})
	}
	return nil
}

// serialize chains direct tasks that share a resource with start_to_start
// dependencies whose lag is the predecessor's duration. Pairs already
// ordered by the graph are left alone.
func serialize(graph *taskgraph.Graph, trigger *model.Trigger, direct []string, e *edit) error {
	byResource := make(map[string][]model.Task)
	wanted := make(map[string]bool)
	for _, r := range trigger.Resources {
		wanted[r] = true
	}

	for _, id := range direct {
		t, _ := graph.Task(id)
		for _, r := range t.Resources {
			if len(wanted) > 0 && !wanted[r] {
				continue
			}
			byResource[r] = append(byResource[r], t)
		}
	}

	resources := make([]string, 0, len(byResource))
	for r := range byResource {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	for _, r := range resources {
		tasks := byResource[r]
		if len(tasks) < 2 {
			continue
		}
		sort.Slice(tasks, func(i, j int) bool {
			if !tasks[i].PlannedStart.Equal(tasks[j].PlannedStart) {
				return tasks[i].PlannedStart.Before(tasks[j].PlannedStart)
			}
			return tasks[i].ID < tasks[j].ID
		})

		var chained []string
		for i := 1; i < len(tasks); i++ {
			pred, succ := tasks[i-1], tasks[i]
			if graph.Reachable(pred.ID, succ.ID) || graph.Reachable(succ.ID, pred.ID) {
				continue
			}
			if err := graph.AddDependency(pred.ID, succ.ID, model.DependencyStartToStart, pred.Duration); err != nil {
				return err
			}
			d, _ := graph.Dependency(pred.ID, succ.ID)
			e.newDependencies = append(e.newDependencies, d)
			e.reasons[succ.ID] = fmt.Sprintf("serialized after %s on resource %s", pred.ID, r)
			if len(chained) == 0 {
				chained = append(chained, pred.ID)
			}
			chained = append(chained, succ.ID)
		}

		if len(chained) > 0 {
			e.resourceChanges = append(e.resourceChanges, model.ResourceChange{
				Resource: r,
				TaskIDs:  chained,
				Action:   model.ResourceChangeSerialized,
				Note:     fmt.Sprintf("%d tasks no longer overlap on %s", len(chained), r),
			})
		}
	}
	return nil
}

func (g *Generator) taskShifts(trigger *model.Trigger, base, proposed model.WBS, before, after *cpm.Result, e *edit) []model.TaskShift {
	moved := make(map[string]bool)
	for _, t := range proposed.Tasks {
		orig, ok := base.Task(t.ID)
		if !ok {
			continue
		}
		if !orig.PlannedStart.Equal(t.PlannedStart) || !orig.PlannedEnd.Equal(t.PlannedEnd) {
			moved[t.ID] = true
		}
	}

	directMoved := 0
	for id := range e.direct {
		if moved[id] {
			directMoved++
		}
	}

	wanted := make(map[string]bool)
	for _, r := range trigger.Resources {
		wanted[r] = true
	}

	var shifts []model.TaskShift
	for _, t := range proposed.Tasks {
		if !moved[t.ID] {
			continue
		}
		orig, _ := base.Task(t.ID)

		var deps []string
		var fromMoved []string
		for _, pred := range t.Dependencies {
			if moved[pred] {
				deps = append(deps, model.DependencyID(pred, t.ID))
				fromMoved = append(fromMoved, pred)
			}
		}

		var resources []string
		for _, r := range t.Resources {
			if trigger.Type == model.TriggerTypeResourceConflict || wanted[r] {
				resources = append(resources, r)
			}
		}

		reason := e.reasons[t.ID]
		switch {
		case reason != "":
		case len(fromMoved) > 0:
			reason = fmt.Sprintf("pushed by %s", strings.Join(fromMoved, ", "))
		default:
			reason = fmt.Sprintf("rescheduled by %s", trigger.Type)
		}

		shift := model.TaskShift{
			TaskID:               t.ID,
			TaskName:             t.Name,
			OriginalStart:        orig.PlannedStart,
			OriginalEnd:          orig.PlannedEnd,
			NewStart:             t.PlannedStart,
			NewEnd:               t.PlannedEnd,
			ShiftDays:            cpm.DaysBetween(orig.PlannedStart, t.PlannedStart),
			EndShiftDays:         cpm.DaysBetween(orig.PlannedEnd, t.PlannedEnd),
			Reason:               reason,
			ImpactedDependencies: deps,
			ImpactedResources:    resources,
			WasCritical:          before.Tasks[t.ID].IsCritical,
			IsCritical:           after.Tasks[t.ID].IsCritical,
		}
		if e.direct[t.ID] && directMoved > 0 {
			shift.CostImpact = trigger.Impact.EstimatedCostDelta / float64(directMoved)
		}
		shifts = append(shifts, shift)
	}
	return shifts
}

func (g *Generator) costImpact(totalDelay int, direct float64) model.CostImpact {
	c := model.CostImpact{
		PerDayCost: g.cfg.CarryingCostPerDay,
		DirectCost: direct,
	}
	if totalDelay > 0 {
		c.DelayCost = g.cfg.CarryingCostPerDay * float64(totalDelay)
	}
	c.Total = c.DelayCost + c.DirectCost

	if !g.cfg.CostModel.IsZero() {
		c.Labor = c.Total * g.cfg.CostModel.Labor
		c.Materials = c.Total * g.cfg.CostModel.Materials
		c.Overhead = c.Total * g.cfg.CostModel.Overhead
		c.Contingency = c.Total * g.cfg.CostModel.Contingency
	}
	return c
}

// criticalPathChanges lists tasks that entered or left the critical set,
// plus critical tasks that moved, sorted by id.
func criticalPathChanges(before, after *cpm.Result, shifts []model.TaskShift) []string {
	changed := make(map[string]bool)
	for id, ts := range after.Tasks {
		if prev, ok := before.Tasks[id]; ok && prev.IsCritical != ts.IsCritical {
			changed[id] = true
		}
	}
	for _, s := range shifts {
		if s.WasCritical || s.IsCritical {
			changed[s.TaskID] = true
		}
	}

	out := make([]string, 0, len(changed))
	for id := range changed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *Generator) assessRisk(trigger *model.Trigger, before, after *cpm.Result) model.RiskAssessment {
	level := trigger.Severity
	if !level.IsValid() {
		level = model.SeverityLow
	}
	factors := []string{fmt.Sprintf("trigger severity %s", trigger.Severity)}

	growth := growthPct(before.TotalDuration, after.TotalDuration)
	if growth > g.cfg.GrowthThresholdPct {
		level = model.MaxSeverity(level, g.cfg.GrowthRiskLevel)
		factors = append(factors, fmt.Sprintf("critical path grew %.1f%% (%d -> %d days)", growth, before.TotalDuration, after.TotalDuration))
	}

	newlyCritical := 0
	for id, ts := range after.Tasks {
		if prev, ok := before.Tasks[id]; ok && ts.IsCritical && !prev.IsCritical {
			newlyCritical++
		}
	}
	if newlyCritical > 0 {
		factors = append(factors, fmt.Sprintf("%d tasks became critical", newlyCritical))
	}

	return model.RiskAssessment{Level: level, Factors: factors}
}

func growthPct(before, after int) float64 {
	if after <= before {
		return 0
	}
	if before == 0 {
		return 100
	}
	return float64(after-before) / float64(before) * 100
}

func (g *Generator) confirmation(trigger *model.Trigger, policy model.ReplanPolicy, cpChanges []string, now time.Time) model.Confirmation {
	eligible := trigger.Severity.Rank() <= g.cfg.AutoApproveMaxSeverity.Rank()
	if len(policy.AutoApproveSeverities) > 0 {
		eligible = policy.AllowsAutoApprove(trigger.Severity)
	}
	if eligible && len(cpChanges) == 0 {
		return model.Confirmation{AutoApply: true}
	}

	c := model.Confirmation{
		RequiresApproval: true,
		Approver:         g.cfg.DefaultApprover,
	}
	if policy.Approver != "" {
		c.Approver = policy.Approver
	}

	window := g.cfg.ApprovalWindow
	if policy.ApprovalWindowHours > 0 {
		window = time.Duration(policy.ApprovalWindowHours) * time.Hour
	}
	if window > 0 {
		c.Deadline = model.Ptr(now.Add(window))
	}
	return c
}
