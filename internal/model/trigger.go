package model

import (
	"fmt"
	"time"
)

type TriggerType string

type TriggerStatus string

const (
	TriggerTypeDocumentExpiry   TriggerType = "document_expiry"
	TriggerTypeSALDelay         TriggerType = "sal_delay"
	TriggerTypeProcurementDelay TriggerType = "procurement_delay"
	TriggerTypeResourceConflict TriggerType = "resource_conflict"
	TriggerTypeScopeChange      TriggerType = "scope_change"
	TriggerTypeRiskMaterialized TriggerType = "risk_materialized"
)

const (
	TriggerStatusDetected  TriggerStatus = "detected"
	TriggerStatusAnalyzing TriggerStatus = "analyzing"
	TriggerStatusProposed  TriggerStatus = "proposed"
	TriggerStatusApproved  TriggerStatus = "approved"
	TriggerStatusRejected  TriggerStatus = "rejected"
	TriggerStatusApplied   TriggerStatus = "applied"
)

func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerTypeDocumentExpiry, TriggerTypeSALDelay, TriggerTypeProcurementDelay,
		TriggerTypeResourceConflict, TriggerTypeScopeChange, TriggerTypeRiskMaterialized:
		return true
	}
	return false
}

// ShiftsSchedule reports whether the trigger is expressed as a start delay.
func (t TriggerType) ShiftsSchedule() bool {
	switch t {
	case TriggerTypeDocumentExpiry, TriggerTypeSALDelay, TriggerTypeProcurementDelay, TriggerTypeRiskMaterialized:
		return true
	}
	return false
}

// proposed/approved -> analyzing is the regeneration path for stale proposals.
var triggerTransitions = map[TriggerStatus][]TriggerStatus{
	TriggerStatusDetected:  {TriggerStatusAnalyzing},
	TriggerStatusAnalyzing: {TriggerStatusProposed, TriggerStatusRejected},
	TriggerStatusProposed:  {TriggerStatusApproved, TriggerStatusRejected, TriggerStatusAnalyzing},
	TriggerStatusApproved:  {TriggerStatusApplied, TriggerStatusRejected, TriggerStatusAnalyzing},
}

func (s TriggerStatus) CanTransitionTo(next TriggerStatus) bool {
	for _, allowed := range triggerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TriggerStatus) IsTerminal() bool {
	return s == TriggerStatusApplied || s == TriggerStatusRejected
}

// TriggerImpact is the detector's first-order estimate. The authoritative
// delay and cost come from the proposal after full recomputation.
type TriggerImpact struct {
	DirectTaskIDs      []string `json:"direct_task_ids"`
	AffectedTaskIDs    []string `json:"affected_task_ids"`
	EstimatedDelayDays int      `json:"estimated_delay_days"`
	EstimatedCostDelta float64  `json:"estimated_cost_delta"`
	RiskLevel          Severity `json:"risk_level"`
}

// Trigger is a typed signal that the live WBS may be invalid.
type Trigger struct {
	ID          int64         `json:"id"`
	ProjectID   string        `json:"project_id"`
	Type        TriggerType   `json:"type"`
	Cause       string        `json:"cause"`
	Severity    Severity      `json:"severity"`
	DetectedAt  time.Time     `json:"detected_at"`
	Impact      TriggerImpact `json:"impact"`
	Status      TriggerStatus `json:"status"`
	FactID      string        `json:"fact_id,omitempty"`
	FactVersion int64         `json:"fact_version,omitempty"`
	FactType    FactType      `json:"fact_type,omitempty"`
	Resources   []string      `json:"resources,omitempty"`
	ProposalID  *int64        `json:"proposal_id,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Transition moves the trigger to next or returns ErrInvalidTransition.
func (t *Trigger) Transition(next TriggerStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return &EngineError{
			Kind:      ErrInvalidTransition,
			TriggerID: t.ID,
			Detail:    fmt.Sprintf("trigger %s -> %s", t.Status, next),
		}
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}
