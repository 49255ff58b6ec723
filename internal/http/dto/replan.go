package dto

import (
	"github.com/EI94/Urbanova-sub017/internal/model"
)

type RePlanRequest struct {
	Type            model.TriggerType `json:"type" binding:"required"`
	Cause           string            `json:"cause" binding:"required"`
	AffectedTaskIDs []string          `json:"affected_task_ids" binding:"required,min=1"`
	DelayDays       int               `json:"delay_days" binding:"min=0"`
	CostDelta       *float64          `json:"cost_delta,omitempty"`
	Severity        model.Severity    `json:"severity,omitempty"`
	Resources       []string          `json:"resources,omitempty"`
	RequestID       string            `json:"request_id,omitempty"`
}

func (r RePlanRequest) ToModel(projectID string) model.RePlanRequest {
	return model.RePlanRequest{
		ProjectID:       projectID,
		Type:            r.Type,
		Cause:           r.Cause,
		AffectedTaskIDs: r.AffectedTaskIDs,
		DelayDays:       r.DelayDays,
		CostDelta:       r.CostDelta,
		Severity:        r.Severity,
		Resources:       r.Resources,
		RequestID:       r.RequestID,
	}
}

type ReplanResponse struct {
	Trigger   *model.Trigger  `json:"trigger"`
	Proposal  *model.Proposal `json:"proposal,omitempty"`
	Duplicate bool            `json:"duplicate"`
}
