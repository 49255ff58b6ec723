// Package trigger turns external fact changes and manual re-plan requests
// into typed re-plan triggers with a first-order impact estimate.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

// Ledger records which (project, fact id, fact version) keys already
// produced a trigger. Claim returns the owning trigger id when the key was
// claimed before, or 0 when this call claimed it for triggerID.
type Ledger interface {
	Claim(ctx context.Context, projectID, factID string, factVersion int64, triggerID int64) (int64, error)
}

// Detection is the outcome of Detect. Exactly one of Trigger or
// ExistingTriggerID is set.
type Detection struct {
	Trigger           *model.Trigger
	ExistingTriggerID int64
}

func (d Detection) Duplicate() bool {
	return d.ExistingTriggerID != 0
}

type Detector struct {
	newID func() int64
	now   func() time.Time
}

func NewDetector(newID func() int64, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{newID: newID, now: now}
}

// Classify builds a trigger in detected status from a fact change. It has
// no side effects apart from drawing a fresh id.
func (d *Detector) Classify(change model.FactChange, wbs model.WBS) (*model.Trigger, error) {
	if err := change.Validate(); err != nil {
		return nil, err
	}
	if change.ProjectID != wbs.ProjectID {
		return nil, model.NewValidationError("project_id", fmt.Sprintf("fact targets project %q, timeline is %q", change.ProjectID, wbs.ProjectID))
	}

	triggerType, ok := TriggerTypeFor(change.FactType)
	if !ok {
		return nil, &model.EngineError{Kind: model.ErrUnknownFactType, Detail: fmt.Sprintf("fact type %q", change.FactType)}
	}

	var resources []string
	if rf, ok := change.Detail.(model.ResourceFact); ok && rf.Resource != "" {
		resources = []string{rf.Resource}
	}

	direct, err := directTasks(wbs, change.FactID, change.AffectedTaskRefs, resources)
	if err != nil {
		return nil, err
	}

	var cost float64
	if change.ReportedCostDelta != nil {
		cost = *change.ReportedCostDelta
	}
	severity := SeverityForDelay(change.ReportedDelayDays, change.SafetyRelevant, change.ComplianceRelevant)

	cause := change.Cause
	if cause == "" {
		cause = Describe(change)
	}

	return d.newTrigger(wbs, triggerType, cause, severity, direct, change.ReportedDelayDays, cost, resources, func(t *model.Trigger) {
		t.FactID = change.FactID
		t.FactVersion = change.FactVersion
		t.FactType = change.FactType
	})
}

// ClassifyRequest builds a trigger from a manual re-plan request. An
// explicit severity on the request overrides the delay thresholds.
func (d *Detector) ClassifyRequest(req model.RePlanRequest, wbs model.WBS) (*model.Trigger, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ProjectID != wbs.ProjectID {
		return nil, model.NewValidationError("project_id", fmt.Sprintf("request targets project %q, timeline is %q", req.ProjectID, wbs.ProjectID))
	}

	direct, err := directTasks(wbs, "", req.AffectedTaskIDs, nil)
	if err != nil {
		return nil, err
	}

	severity := req.Severity
	if severity == "" {
		severity = SeverityForDelay(req.DelayDays, false, false)
	}
	var cost float64
	if req.CostDelta != nil {
		cost = *req.CostDelta
	}

	return d.newTrigger(wbs, req.Type, req.Cause, severity, direct, req.DelayDays, cost, req.Resources, nil)
}

// Detect classifies change and claims its (fact id, fact version) key in the
// ledger. A re-delivered fact yields the id of the trigger created first.
func (d *Detector) Detect(ctx context.Context, ledger Ledger, change model.FactChange, wbs model.WBS) (Detection, error) {
	trigger, err := d.Classify(change, wbs)
	if err != nil {
		return Detection{}, err
	}

	existing, err := ledger.Claim(ctx, change.ProjectID, change.FactID, change.FactVersion, trigger.ID)
	if err != nil {
		return Detection{}, fmt.Errorf("claiming fact %s v%d: %w", change.FactID, change.FactVersion, err)
	}
	if existing != 0 {
		slog.InfoContext(ctx, "fact already classified",
			"fact_id", change.FactID,
			"fact_version", change.FactVersion,
			"trigger_id", existing)
		return Detection{ExistingTriggerID: existing}, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{TriggerID: &trigger.ID})
	slog.InfoContext(ctx, "trigger detected",
		"type", trigger.Type,
		"severity", trigger.Severity,
		"direct_tasks", len(trigger.Impact.DirectTaskIDs),
		"affected_tasks", len(trigger.Impact.AffectedTaskIDs))
	return Detection{Trigger: trigger}, nil
}

func (d *Detector) newTrigger(
	wbs model.WBS,
	triggerType model.TriggerType,
	cause string,
	severity model.Severity,
	direct []string,
	delayDays int,
	cost float64,
	resources []string,
	fn func(t *model.Trigger),
) (*model.Trigger, error) {
	g, err := taskgraph.FromWBS(wbs)
	if err != nil {
		return nil, err
	}

	affected := append(append([]string(nil), direct...), g.TransitiveDependents(direct)...)
	sort.Strings(affected)

	now := d.now().UTC()
	t := &model.Trigger{
		ID:         d.newID(),
		ProjectID:  wbs.ProjectID,
		Type:       triggerType,
		Cause:      cause,
		Severity:   severity,
		DetectedAt: now,
		Impact: model.TriggerImpact{
			DirectTaskIDs:      direct,
			AffectedTaskIDs:    affected,
			EstimatedDelayDays: delayDays,
			EstimatedCostDelta: cost,
			RiskLevel:          severity,
		},
		Status:    model.TriggerStatusDetected,
		Resources: append([]string(nil), resources...),
		UpdatedAt: now,
	}
	if fn != nil {
		fn(t)
	}
	return t, nil
}

// directTasks returns the open tasks hit by a fact: explicit references,
// tasks sourced from the fact, and tasks holding the named resources.
// Completed and cancelled tasks can no longer move and are skipped.
func directTasks(wbs model.WBS, factID string, refs []string, resources []string) ([]string, error) {
	known := make(map[string]model.Task, len(wbs.Tasks))
	for _, t := range wbs.Tasks {
		known[t.ID] = t
	}

	hit := make(map[string]bool)
	for _, ref := range refs {
		if _, ok := known[ref]; !ok {
			return nil, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: ref, Detail: "referenced by fact change"}
		}
		hit[ref] = true
	}
	for _, t := range wbs.Tasks {
		if factID != "" && t.FactID == factID {
			hit[t.ID] = true
		}
		for _, r := range resources {
			for _, tr := range t.Resources {
				if r == tr {
					hit[t.ID] = true
				}
			}
		}
	}

	out := make([]string, 0, len(hit))
	for id := range hit {
		switch known[id].Status {
		case model.TaskStatusCompleted, model.TaskStatusCancelled:
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Describe renders a short human cause from the fact detail.
func Describe(change model.FactChange) string {
	switch d := change.Detail.(type) {
	case model.DocumentFact:
		if d.ExpiresAt != nil {
			return fmt.Sprintf("document %s expires on %s", d.DocumentID, d.ExpiresAt.Format(time.DateOnly))
		}
		return fmt.Sprintf("document %s expired", d.DocumentID)
	case model.SALFact:
		return fmt.Sprintf("SAL %d at %.0f%% against %.0f%% planned", d.SALNumber, d.ActualPercent, d.PlannedPercent)
	case model.ProcurementFact:
		if d.PreviousStatus != "" {
			return fmt.Sprintf("RFQ %s regressed from %s to %s", d.RFQID, d.PreviousStatus, d.CurrentStatus)
		}
		return fmt.Sprintf("RFQ %s is %s", d.RFQID, d.CurrentStatus)
	case model.ListingFact:
		return fmt.Sprintf("listing %s changed to %s", d.ListingID, d.CurrentStatus)
	case model.PermitFact:
		return fmt.Sprintf("permit %s is %s", d.PermitID, d.Status)
	case model.ResourceFact:
		return fmt.Sprintf("resource %s is double-booked", d.Resource)
	}
	return fmt.Sprintf("%s fact %s changed (%d days reported delay)", change.FactType, change.FactID, change.ReportedDelayDays)
}
