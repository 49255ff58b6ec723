package dto

import (
	"time"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

type GenerateTimelineRequest struct {
	StartDate    time.Time             `json:"start_date" binding:"required"`
	Tasks        []model.Task          `json:"tasks" binding:"required,min=1"`
	Dependencies []model.Dependency    `json:"dependencies"`
	SourceFacts  []model.SourceFactRef `json:"source_facts,omitempty"`
	Policy       model.ReplanPolicy    `json:"policy"`
}

type TriggerListResponse struct {
	ProjectID string          `json:"project_id"`
	Triggers  []model.Trigger `json:"triggers"`
}

type RePlanHistoryResponse struct {
	ProjectID string            `json:"project_id"`
	Proposals []ProposalSummary `json:"proposals"`
}

// ProposalSummary is a history entry without the embedded timelines.
type ProposalSummary struct {
	ID               int64                `json:"id"`
	TriggerID        int64                `json:"trigger_id"`
	BaseVersion      int64                `json:"base_version"`
	Status           model.ProposalStatus `json:"status"`
	TotalDelayDays   int                  `json:"total_delay_days"`
	OriginalDuration int                  `json:"original_duration"`
	ProposedDuration int                  `json:"proposed_duration"`
	CostImpact       float64              `json:"cost_impact"`
	RiskLevel        model.Severity       `json:"risk_level"`
	ShiftedTasks     int                  `json:"shifted_tasks"`
	ApprovedBy       string               `json:"approved_by,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	AppliedAt        *time.Time           `json:"applied_at,omitempty"`
}

func ToProposalSummary(p model.Proposal) ProposalSummary {
	return ProposalSummary{
		ID:               p.ID,
		TriggerID:        p.TriggerID,
		BaseVersion:      p.BaseVersion,
		Status:           p.Status,
		TotalDelayDays:   p.Impact.TotalDelayDays,
		OriginalDuration: p.Impact.OriginalDuration,
		ProposedDuration: p.Impact.ProposedDuration,
		CostImpact:       p.Changes.CostImpact.Total,
		RiskLevel:        p.Impact.RiskAssessment.Level,
		ShiftedTasks:     len(p.Changes.ShiftedTasks),
		ApprovedBy:       p.Confirmation.ApprovedBy,
		CreatedAt:        p.CreatedAt,
		AppliedAt:        p.AppliedAt,
	}
}

func ToRePlanHistoryResponse(projectID string, proposals []model.Proposal) *RePlanHistoryResponse {
	summaries := make([]ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		summaries = append(summaries, ToProposalSummary(p))
	}
	return &RePlanHistoryResponse{ProjectID: projectID, Proposals: summaries}
}
