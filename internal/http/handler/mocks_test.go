package handler_test

import (
	"context"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

type mockTimelineService struct {
	generateFn func(ctx context.Context, params service.GenerateTimelineParams) (*model.WBS, error)
	getFn      func(ctx context.Context, projectID string) (*model.WBS, error)
	statsFn    func(ctx context.Context, projectID string) (*model.TimelineStats, error)
	triggersFn func(ctx context.Context, projectID string) ([]model.Trigger, error)
	historyFn  func(ctx context.Context, projectID string) ([]model.Proposal, error)
}

func (m *mockTimelineService) GenerateTimeline(ctx context.Context, params service.GenerateTimelineParams) (*model.WBS, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, params)
	}
	return nil, nil
}

func (m *mockTimelineService) GetTimeline(ctx context.Context, projectID string) (*model.WBS, error) {
	if m.getFn != nil {
		return m.getFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTimelineService) GetTimelineStats(ctx context.Context, projectID string) (*model.TimelineStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTimelineService) GetActiveTriggers(ctx context.Context, projectID string) ([]model.Trigger, error) {
	if m.triggersFn != nil {
		return m.triggersFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTimelineService) GetRePlanHistory(ctx context.Context, projectID string) ([]model.Proposal, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, projectID)
	}
	return nil, nil
}

type mockReplanService struct {
	ingestFn     func(ctx context.Context, change model.FactChange) (*service.ReplanResult, error)
	requestFn    func(ctx context.Context, req model.RePlanRequest) (*service.ReplanResult, error)
	regenerateFn func(ctx context.Context, proposalID int64) (*service.ReplanResult, error)
}

func (m *mockReplanService) IngestFact(ctx context.Context, change model.FactChange) (*service.ReplanResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, change)
	}
	return nil, nil
}

func (m *mockReplanService) RequestRePlan(ctx context.Context, req model.RePlanRequest) (*service.ReplanResult, error) {
	if m.requestFn != nil {
		return m.requestFn(ctx, req)
	}
	return nil, nil
}

func (m *mockReplanService) RegenerateProposal(ctx context.Context, proposalID int64) (*service.ReplanResult, error) {
	if m.regenerateFn != nil {
		return m.regenerateFn(ctx, proposalID)
	}
	return nil, nil
}

type mockLifecycleService struct {
	getFn     func(ctx context.Context, proposalID int64) (*model.Proposal, error)
	approveFn func(ctx context.Context, proposalID int64, approver string) (*model.Proposal, error)
	rejectFn  func(ctx context.Context, proposalID int64, reason string) (*model.Proposal, error)
	applyFn   func(ctx context.Context, proposalID int64) (*model.Proposal, error)
}

func (m *mockLifecycleService) GetProposal(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	if m.getFn != nil {
		return m.getFn(ctx, proposalID)
	}
	return nil, nil
}

func (m *mockLifecycleService) Approve(ctx context.Context, proposalID int64, approver string) (*model.Proposal, error) {
	if m.approveFn != nil {
		return m.approveFn(ctx, proposalID, approver)
	}
	return nil, nil
}

func (m *mockLifecycleService) Reject(ctx context.Context, proposalID int64, reason string) (*model.Proposal, error) {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, proposalID, reason)
	}
	return nil, nil
}

func (m *mockLifecycleService) Apply(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, proposalID)
	}
	return nil, nil
}

// Trigger analysis is driven by the re-plan service, never over HTTP.
func (m *mockLifecycleService) BeginAnalysis(ctx context.Context, triggerID int64) (*model.Trigger, error) {
	return nil, nil
}

func (m *mockLifecycleService) RecordProposal(ctx context.Context, p *model.Proposal) (*model.Trigger, error) {
	return nil, nil
}

func (m *mockLifecycleService) Dismiss(ctx context.Context, triggerID int64, reason string) (*model.Trigger, error) {
	return nil, nil
}

func (m *mockLifecycleService) Supersede(ctx context.Context, proposalID int64, reason string) (*model.Trigger, error) {
	return nil, nil
}
