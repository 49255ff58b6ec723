package model

import (
	"fmt"
	"time"
)

type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusProposed ProposalStatus = "proposed"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusApplied  ProposalStatus = "applied"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusDraft:    {ProposalStatusProposed},
	ProposalStatusProposed: {ProposalStatusApproved, ProposalStatusRejected},
	ProposalStatusApproved: {ProposalStatusApplied, ProposalStatusRejected},
}

func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	for _, allowed := range proposalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusApplied || s == ProposalStatusRejected
}

// TaskShift records one task's schedule delta. Audit artifact only.
type TaskShift struct {
	TaskID               string    `json:"task_id"`
	TaskName             string    `json:"task_name,omitempty"`
	OriginalStart        time.Time `json:"original_start"`
	OriginalEnd          time.Time `json:"original_end"`
	NewStart             time.Time `json:"new_start"`
	NewEnd               time.Time `json:"new_end"`
	ShiftDays            int       `json:"shift_days"`
	EndShiftDays         int       `json:"end_shift_days"`
	Reason               string    `json:"reason"`
	ImpactedDependencies []string  `json:"impacted_dependencies,omitempty"`
	ImpactedResources    []string  `json:"impacted_resources,omitempty"`
	CostImpact           float64   `json:"cost_impact"`
	WasCritical          bool      `json:"was_critical"`
	IsCritical           bool      `json:"is_critical"`
}

type ResourceChangeAction string

const (
	ResourceChangeSerialized ResourceChangeAction = "serialized"
	ResourceChangeExtended   ResourceChangeAction = "extended"
)

type ResourceChange struct {
	Resource string               `json:"resource"`
	TaskIDs  []string             `json:"task_ids"`
	Action   ResourceChangeAction `json:"action"`
	Note     string               `json:"note,omitempty"`
}

// CostImpact splits the total into buckets; buckets stay zero without a cost model.
type CostImpact struct {
	Total       float64 `json:"total"`
	PerDayCost  float64 `json:"per_day_cost"`
	DelayCost   float64 `json:"delay_cost"`
	DirectCost  float64 `json:"direct_cost"`
	Labor       float64 `json:"labor"`
	Materials   float64 `json:"materials"`
	Overhead    float64 `json:"overhead"`
	Contingency float64 `json:"contingency"`
}

type ProposalChanges struct {
	ShiftedTasks    []TaskShift      `json:"shifted_tasks"`
	NewDependencies []Dependency     `json:"new_dependencies,omitempty"`
	ResourceChanges []ResourceChange `json:"resource_changes,omitempty"`
	CostImpact      CostImpact       `json:"cost_impact"`
}

type RiskAssessment struct {
	Level   Severity `json:"level"`
	Factors []string `json:"factors,omitempty"`
}

type ProposalImpact struct {
	TotalDelayDays      int            `json:"total_delay_days"`
	OriginalDuration    int            `json:"original_duration"`
	ProposedDuration    int            `json:"proposed_duration"`
	CriticalPathChanges []string       `json:"critical_path_changes"`
	RiskAssessment      RiskAssessment `json:"risk_assessment"`
	Recommendations     []string       `json:"recommendations"`
}

type Confirmation struct {
	RequiresApproval bool       `json:"requires_approval"`
	AutoApply        bool       `json:"auto_apply"`
	Approver         string     `json:"approver,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RejectedReason   string     `json:"rejected_reason,omitempty"`
}

// Expired reports whether the confirmation deadline has passed.
func (c Confirmation) Expired(now time.Time) bool {
	return c.Deadline != nil && now.After(*c.Deadline)
}

// Proposal is a candidate schedule change tied to exactly one trigger and
// computed against BaseVersion of the project's WBS.
type Proposal struct {
	ID               int64           `json:"id"`
	TriggerID        int64           `json:"trigger_id"`
	ProjectID        string          `json:"project_id"`
	BaseVersion      int64           `json:"base_version"`
	CurrentTimeline  WBS             `json:"current_timeline"`
	ProposedTimeline WBS             `json:"proposed_timeline"`
	Changes          ProposalChanges `json:"changes"`
	Impact           ProposalImpact  `json:"impact"`
	Confirmation     Confirmation    `json:"confirmation"`
	Status           ProposalStatus  `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	AppliedAt        *time.Time      `json:"applied_at,omitempty"`
}

// Transition moves the proposal to next or returns ErrInvalidTransition.
func (p *Proposal) Transition(next ProposalStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return &EngineError{
			Kind:       ErrInvalidTransition,
			ProposalID: p.ID,
			TriggerID:  p.TriggerID,
			Detail:     fmt.Sprintf("proposal %s -> %s", p.Status, next),
		}
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}
