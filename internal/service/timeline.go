package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/internal/cpm"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/store"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

type GenerateTimelineParams struct {
	ProjectID    string                `json:"project_id"`
	StartDate    time.Time             `json:"start_date"`
	Tasks        []model.Task          `json:"tasks"`
	Dependencies []model.Dependency    `json:"dependencies"`
	SourceFacts  []model.SourceFactRef `json:"source_facts,omitempty"`
	Policy       model.ReplanPolicy    `json:"policy"`
}

type TimelineService interface {
	GenerateTimeline(ctx context.Context, params GenerateTimelineParams) (*model.WBS, error)
	GetTimeline(ctx context.Context, projectID string) (*model.WBS, error)
	GetTimelineStats(ctx context.Context, projectID string) (*model.TimelineStats, error)
	GetActiveTriggers(ctx context.Context, projectID string) ([]model.Trigger, error)
	GetRePlanHistory(ctx context.Context, projectID string) ([]model.Proposal, error)
}

type timelineService struct {
	stores StoreProvider
	now    func() time.Time
}

func NewTimelineService(stores StoreProvider, now func() time.Time) TimelineService {
	if now == nil {
		now = time.Now
	}
	return &timelineService{stores: stores, now: now}
}

// GenerateTimeline schedules the initial WBS of a project and stores it as version 1.
func (s *timelineService) GenerateTimeline(ctx context.Context, params GenerateTimelineParams) (*model.WBS, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID: &params.ProjectID,
		Component: "timeline.service.timeline",
	})

	if params.ProjectID == "" {
		return nil, model.NewValidationError("project_id", "project_id is required")
	}
	if len(params.Tasks) == 0 {
		return nil, model.NewValidationError("tasks", "at least one task is required")
	}

	// Building the graph first reports cycles as the offending dependency.
	if _, err := taskgraph.Build(params.ProjectID, params.Tasks, params.Dependencies); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	draft := model.WBS{
		ProjectID:    params.ProjectID,
		Version:      1,
		Status:       model.WBSStatusActive,
		Tasks:        params.Tasks,
		Dependencies: params.Dependencies,
		StartDate:    params.StartDate,
		SourceFacts:  params.SourceFacts,
		Policy:       params.Policy,
		CreatedAt:    now,
	}
	wbs, result, err := cpm.Schedule(draft)
	if err != nil {
		return nil, err
	}

	if err := s.stores.Timelines().Create(ctx, &wbs); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", model.ErrTimelineExists, params.ProjectID)
		}
		return nil, fmt.Errorf("storing timeline: %w", err)
	}

	slog.InfoContext(ctx, "timeline generated",
		"tasks", len(wbs.Tasks),
		"dependencies", len(wbs.Dependencies),
		"critical_path", wbs.CriticalPath,
		"duration_days", result.TotalDuration)
	return &wbs, nil
}

func (s *timelineService) GetTimeline(ctx context.Context, projectID string) (*model.WBS, error) {
	return getTimeline(ctx, s.stores, projectID)
}

func (s *timelineService) GetTimelineStats(ctx context.Context, projectID string) (*model.TimelineStats, error) {
	wbs, err := getTimeline(ctx, s.stores, projectID)
	if err != nil {
		return nil, err
	}

	stats := &model.TimelineStats{
		ProjectID:            wbs.ProjectID,
		Version:              wbs.Version,
		Status:               wbs.Status,
		TotalTasks:           wbs.TotalTasks,
		CompletedTasks:       wbs.CompletedTasks,
		OverallProgress:      wbs.OverallProgress,
		CriticalPathLength:   len(wbs.CriticalPath),
		CriticalPathDuration: wbs.CriticalPathDuration,
		StartDate:            wbs.StartDate,
		EndDate:              wbs.EndDate,
		LastRegeneratedAt:    wbs.LastRegeneratedAt,
	}
	for _, t := range wbs.Tasks {
		switch t.Status {
		case model.TaskStatusInProgress:
			stats.InProgressTasks++
		case model.TaskStatusBlocked:
			stats.BlockedTasks++
		case model.TaskStatusNotStarted:
			stats.NotStartedTasks++
		case model.TaskStatusCancelled:
			stats.CancelledTasks++
		}
		if t.IsCritical {
			stats.CriticalTasks++
		}
	}
	stats.DaysRemaining = max(cpm.DaysBetween(s.now(), wbs.EndDate), 0)

	triggers, err := s.stores.Triggers().ListActiveByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing active triggers: %w", err)
	}
	stats.ActiveTriggers = len(triggers)

	history, err := s.stores.Timelines().ListHistory(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing re-plan history: %w", err)
	}
	stats.RePlanCount = len(history)

	return stats, nil
}

func (s *timelineService) GetActiveTriggers(ctx context.Context, projectID string) ([]model.Trigger, error) {
	if _, err := getTimeline(ctx, s.stores, projectID); err != nil {
		return nil, err
	}
	triggers, err := s.stores.Triggers().ListActiveByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing active triggers: %w", err)
	}
	return triggers, nil
}

func (s *timelineService) GetRePlanHistory(ctx context.Context, projectID string) ([]model.Proposal, error) {
	if _, err := getTimeline(ctx, s.stores, projectID); err != nil {
		return nil, err
	}
	history, err := s.stores.Timelines().ListHistory(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing re-plan history: %w", err)
	}
	return history, nil
}

func getTimeline(ctx context.Context, stores StoreProvider, projectID string) (*model.WBS, error) {
	wbs, err := stores.Timelines().Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrTimelineNotFound, projectID)
		}
		return nil, fmt.Errorf("loading timeline: %w", err)
	}
	return wbs, nil
}

func getTrigger(ctx context.Context, stores StoreProvider, id int64) (*model.Trigger, error) {
	t, err := stores.Triggers().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &model.EngineError{Kind: model.ErrTriggerNotFound, TriggerID: id}
		}
		return nil, fmt.Errorf("loading trigger: %w", err)
	}
	return t, nil
}

func getProposal(ctx context.Context, stores StoreProvider, id int64) (*model.Proposal, error) {
	p, err := stores.Proposals().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &model.EngineError{Kind: model.ErrProposalNotFound, ProposalID: id}
		}
		return nil, fmt.Errorf("loading proposal: %w", err)
	}
	return p, nil
}
