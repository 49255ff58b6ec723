package replan

import (
	"fmt"
	"strings"

	"github.com/EI94/Urbanova-sub017/internal/cpm"
	"github.com/EI94/Urbanova-sub017/internal/model"
)

// recommend derives up to MaxRecommendations rule-based suggestions. Rules
// run in a fixed order so identical proposals get identical advice.
func (g *Generator) recommend(trigger *model.Trigger, p *model.Proposal, base, proposed model.WBS, before, after *cpm.Result) []string {
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	if p.Impact.TotalDelayDays <= 0 {
		add("Delay is absorbed by available slack; the project end date does not move")
	}

	for _, s := range p.Changes.ShiftedTasks {
		t, _ := proposed.Task(s.TaskID)
		if t.Type == model.TaskTypeMilestone && s.EndShiftDays > 0 {
			add("Renegotiate milestone %s (%s) deadline: it slips %d days", t.Name, t.ID, s.EndShiftDays)
		}
	}

	var squeezed []string
	for _, t := range proposed.Tasks {
		prev, ok := before.Tasks[t.ID]
		if !ok {
			continue
		}
		if after.Tasks[t.ID].IsCritical && !prev.IsCritical {
			squeezed = append(squeezed, t.ID)
		}
	}
	if len(squeezed) > 0 {
		add("Reallocate resources to %s: slack dropped to zero", strings.Join(squeezed, ", "))
	}

	if a, b, ok := parallelCandidate(proposed); ok {
		add("Consider parallelizing tasks %s and %s to recover critical path time", a, b)
	}

	if p.Changes.CostImpact.Total > 0 {
		add("Budget %.2f for the re-plan (%.2f carrying, %.2f direct)",
			p.Changes.CostImpact.Total, p.Changes.CostImpact.DelayCost, p.Changes.CostImpact.DirectCost)
	}

	add("%s", typeAdvice(trigger, base))

	if len(out) > g.cfg.MaxRecommendations {
		out = out[:g.cfg.MaxRecommendations]
	}
	return out
}

// parallelCandidate returns the first consecutive finish_to_start pair on
// the critical path whose tasks share no resource.
func parallelCandidate(w model.WBS) (string, string, bool) {
	for i := 1; i < len(w.CriticalPath); i++ {
		from, to := w.CriticalPath[i-1], w.CriticalPath[i]
		var dep *model.Dependency
		for j := range w.Dependencies {
			if w.Dependencies[j].From == from && w.Dependencies[j].To == to {
				dep = &w.Dependencies[j]
				break
			}
		}
		if dep == nil || dep.Type != model.DependencyFinishToStart {
			continue
		}
		a, _ := w.Task(from)
		b, _ := w.Task(to)
		if a.Duration == 0 || b.Duration == 0 || a.SharesResource(b) {
			continue
		}
		return from, to, true
	}
	return "", "", false
}

func typeAdvice(trigger *model.Trigger, base model.WBS) string {
	first := ""
	if len(trigger.Impact.DirectTaskIDs) > 0 {
		first = trigger.Impact.DirectTaskIDs[0]
	}
	name := first
	if t, ok := base.Task(first); ok && t.Name != "" {
		name = t.Name
	}

	switch trigger.Type {
	case model.TriggerTypeDocumentExpiry:
		return fmt.Sprintf("Renew the expiring document before %s starts", name)
	case model.TriggerTypeSALDelay:
		return fmt.Sprintf("Review contractor progress on %s against the work-progress statement", name)
	case model.TriggerTypeProcurementDelay:
		return fmt.Sprintf("Expedite the order or source an alternate supplier for %s", name)
	case model.TriggerTypeResourceConflict:
		return "Confirm the serialized resource plan with the affected crews"
	case model.TriggerTypeScopeChange:
		return "Confirm the scope change and its cost with the client before committing"
	case model.TriggerTypeRiskMaterialized:
		return fmt.Sprintf("Activate the mitigation plan for %s", name)
	}
	return "Review the affected tasks with the project manager"
}
