package dto

// Machine-readable error codes returned alongside the message.
const (
	CodeBadRequest       = "bad_request"
	CodeValidation       = "validation_error"
	CodeUnknownTask      = "unknown_task"
	CodeCycleDetected    = "cycle_detected"
	CodeNotTraversable   = "not_traversable"
	CodeNoAffectedTasks  = "no_affected_tasks"
	CodeUnknownFactType  = "unknown_fact_type"
	CodeProposalExpired  = "proposal_expired"
	CodeStaleBaseVersion = "stale_base_version"
	CodeInvalidState     = "invalid_transition"
	CodeTimelineExists   = "timeline_exists"
	CodeTimelineNotFound = "timeline_not_found"
	CodeTriggerNotFound  = "trigger_not_found"
	CodeProposalNotFound = "proposal_not_found"
	CodeSchemaNotFound   = "schema_not_found"
	CodeInternal         = "internal_error"
)

type ErrorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	TaskID       string `json:"task_id,omitempty"`
	DependencyID string `json:"dependency_id,omitempty"`
	TriggerID    int64  `json:"trigger_id,omitempty"`
	ProposalID   int64  `json:"proposal_id,omitempty"`
	Field        string `json:"field,omitempty"`
}
