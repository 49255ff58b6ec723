package model

import "fmt"

// RePlanRequest is a manual re-plan command issued by a user rather than
// derived from an external fact.
type RePlanRequest struct {
	ProjectID       string      `json:"project_id,omitempty"`
	Type            TriggerType `json:"type" jsonschema:"required,enum=document_expiry,enum=sal_delay,enum=procurement_delay,enum=resource_conflict,enum=scope_change,enum=risk_materialized"`
	Cause           string      `json:"cause" jsonschema:"required"`
	AffectedTaskIDs []string    `json:"affected_task_ids" jsonschema:"required,minItems=1"`
	DelayDays       int         `json:"delay_days"`
	CostDelta       *float64    `json:"cost_delta,omitempty"`
	Severity        Severity    `json:"severity,omitempty" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Resources       []string    `json:"resources,omitempty"`
	// RequestID makes retries of the same command idempotent.
	RequestID string `json:"request_id,omitempty"`
}

func (r RePlanRequest) Validate() error {
	if r.ProjectID == "" {
		return NewValidationError("project_id", "project_id is required")
	}
	if !r.Type.IsValid() {
		return NewValidationError("type", fmt.Sprintf("unknown trigger type %q", r.Type))
	}
	if r.Cause == "" {
		return NewValidationError("cause", "cause is required")
	}
	if r.DelayDays < 0 {
		return NewValidationError("delay_days", "delay_days must not be negative")
	}
	if r.Severity != "" && !r.Severity.IsValid() {
		return NewValidationError("severity", fmt.Sprintf("unknown severity %q", r.Severity))
	}
	return nil
}
