package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/trigger"
)

// proposeAttempts bounds regeneration when the live timeline moves while a
// proposal is being computed.
const proposeAttempts = 2

type ReplanResult struct {
	Trigger  *model.Trigger  `json:"trigger"`
	Proposal *model.Proposal `json:"proposal,omitempty"`
	// Duplicate is set when the fact or request was already classified.
	Duplicate bool `json:"duplicate"`
}

type ReplanService interface {
	// IngestFact classifies a fact change and, for a new one, proposes a re-plan.
	IngestFact(ctx context.Context, change model.FactChange) (*ReplanResult, error)
	RequestRePlan(ctx context.Context, req model.RePlanRequest) (*ReplanResult, error)
	// RegenerateProposal rejects a stale proposal and proposes again for its
	// trigger against the live timeline.
	RegenerateProposal(ctx context.Context, proposalID int64) (*ReplanResult, error)
}

type replanService struct {
	stores    StoreProvider
	txRunner  TxRunner
	detector  *trigger.Detector
	generator *replan.Generator
	lifecycle LifecycleService
	notifier  queue.Notifier
	now       func() time.Time
}

func NewReplanService(
	stores StoreProvider,
	txRunner TxRunner,
	detector *trigger.Detector,
	generator *replan.Generator,
	lifecycle LifecycleService,
	notifier queue.Notifier,
	now func() time.Time,
) ReplanService {
	if now == nil {
		now = time.Now
	}
	return &replanService{
		stores:    stores,
		txRunner:  txRunner,
		detector:  detector,
		generator: generator,
		lifecycle: lifecycle,
		notifier:  notifier,
		now:       now,
	}
}

func (s *replanService) IngestFact(ctx context.Context, change model.FactChange) (*ReplanResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID: &change.ProjectID,
		FactID:    &change.FactID,
		Component: "timeline.service.replan",
	})

	wbs, err := getTimeline(ctx, s.stores, change.ProjectID)
	if err != nil {
		return nil, err
	}

	return s.detectAndPropose(ctx, func(sp StoreProvider) (trigger.Detection, error) {
		return s.detector.Detect(ctx, sp.FactLedger(), change, *wbs)
	})
}

func (s *replanService) RequestRePlan(ctx context.Context, req model.RePlanRequest) (*ReplanResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID: &req.ProjectID,
		Component: "timeline.service.replan",
	})

	if err := req.Validate(); err != nil {
		return nil, err
	}
	wbs, err := getTimeline(ctx, s.stores, req.ProjectID)
	if err != nil {
		return nil, err
	}

	return s.detectAndPropose(ctx, func(sp StoreProvider) (trigger.Detection, error) {
		t, err := s.detector.ClassifyRequest(req, *wbs)
		if err != nil {
			return trigger.Detection{}, err
		}
		if req.RequestID == "" {
			return trigger.Detection{Trigger: t}, nil
		}
		existing, err := sp.FactLedger().Claim(ctx, req.ProjectID, requestLedgerKey(req.RequestID), 0, t.ID)
		if err != nil {
			return trigger.Detection{}, fmt.Errorf("claiming request %s: %w", req.RequestID, err)
		}
		if existing != 0 {
			return trigger.Detection{ExistingTriggerID: existing}, nil
		}
		return trigger.Detection{Trigger: t}, nil
	})
}

func (s *replanService) RegenerateProposal(ctx context.Context, proposalID int64) (*ReplanResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: &proposalID,
		Component:  "timeline.service.replan",
	})

	t, err := s.lifecycle.Supersede(ctx, proposalID, "superseded by regeneration")
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "regenerating proposal", "trigger_id", t.ID)
	return s.propose(ctx, t)
}

// detectAndPropose persists the trigger found by detect in the same
// transaction as its ledger claim, then proposes outside of it.
func (s *replanService) detectAndPropose(ctx context.Context, detect func(sp StoreProvider) (trigger.Detection, error)) (*ReplanResult, error) {
	var detection trigger.Detection
	var existing *model.Trigger
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		detection, err = detect(sp)
		if err != nil {
			return err
		}
		if detection.Duplicate() {
			existing, err = getTrigger(ctx, sp, detection.ExistingTriggerID)
			return err
		}
		if err := sp.Triggers().Create(ctx, detection.Trigger); err != nil {
			return fmt.Errorf("storing trigger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := detection.Trigger
	if detection.Duplicate() {
		t = existing
		ctx = logger.WithLogFields(ctx, logger.LogFields{TriggerID: &t.ID})
		if t.Status == model.TriggerStatusDetected || t.Status == model.TriggerStatusAnalyzing {
			// A trigger without a proposal was interrupted before analysis finished.
			slog.InfoContext(ctx, "resuming analysis of duplicate trigger", "status", t.Status)
		}
	}

	if t.Status == model.TriggerStatusDetected || t.Status == model.TriggerStatusAnalyzing {
		result, err := s.propose(ctx, t)
		if err == nil {
			result.Duplicate = detection.Duplicate()
			return result, nil
		}
		if !errors.Is(err, model.ErrInvalidTransition) {
			return nil, err
		}
		// A concurrent delivery of the same signal finished the analysis.
		slog.InfoContext(ctx, "trigger analyzed by a concurrent delivery", "error", err)
		if existing, err = getTrigger(ctx, s.stores, t.ID); err != nil {
			return nil, err
		}
	}

	result := &ReplanResult{Trigger: existing, Duplicate: true}
	if existing.ProposalID != nil {
		p, err := getProposal(ctx, s.stores, *existing.ProposalID)
		if err != nil {
			return nil, err
		}
		result.Proposal = p
	}
	slog.InfoContext(ctx, "duplicate re-plan signal ignored", "status", existing.Status)
	return result, nil
}

// propose generates and stores a proposal for t, retrying once when the
// live timeline moved meanwhile, then auto-applies it when policy allows.
func (s *replanService) propose(ctx context.Context, t *model.Trigger) (*ReplanResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID: &t.ProjectID,
		TriggerID: &t.ID,
	})
	span := logger.StartSpan(ctx, "timeline.replan.propose")
	defer span.End()
	ctx = span.Context()

	if _, err := s.lifecycle.BeginAnalysis(ctx, t.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var result *ReplanResult
	var err error
	for attempt := 1; attempt <= proposeAttempts; attempt++ {
		result, err = s.proposeOnce(ctx, t.ID, t.ProjectID)
		if err == nil || !errors.Is(err, model.ErrStaleBaseVersion) {
			break
		}
		slog.WarnContext(ctx, "live timeline moved during proposal generation",
			"attempt", attempt,
			"error", err)
	}
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, model.ErrNoAffectedTasks) {
			if _, dismissErr := s.lifecycle.Dismiss(ctx, t.ID, "no open tasks affected"); dismissErr != nil {
				return nil, errors.Join(err, dismissErr)
			}
		}
		return nil, err
	}

	notify(ctx, s.notifier, queue.Notification{
		Kind:       queue.NotificationTriggerProposed,
		ProjectID:  result.Trigger.ProjectID,
		TriggerID:  result.Trigger.ID,
		ProposalID: result.Proposal.ID,
		Payload:    result,
	})

	if !result.Proposal.Confirmation.AutoApply {
		return result, nil
	}

	applied, err := s.lifecycle.Approve(ctx, result.Proposal.ID, SystemApprover)
	if err != nil {
		if errors.Is(err, model.ErrStaleBaseVersion) {
			slog.WarnContext(ctx, "auto-apply lost the race to another re-plan", "error", err)
			return s.reload(ctx, result)
		}
		return nil, fmt.Errorf("auto-applying proposal: %w", err)
	}
	result.Proposal = applied
	return s.reload(ctx, result)
}

func (s *replanService) proposeOnce(ctx context.Context, triggerID int64, projectID string) (*ReplanResult, error) {
	wbs, err := getTimeline(ctx, s.stores, projectID)
	if err != nil {
		return nil, err
	}
	t, err := getTrigger(ctx, s.stores, triggerID)
	if err != nil {
		return nil, err
	}

	p, err := s.generator.Propose(t, *wbs, wbs.Version)
	if err != nil {
		return nil, err
	}

	t, err = s.lifecycle.RecordProposal(ctx, p)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "proposal created",
		"proposal_id", p.ID,
		"base_version", p.BaseVersion,
		"total_delay_days", p.Impact.TotalDelayDays,
		"risk", p.Impact.RiskAssessment.Level,
		"requires_approval", p.Confirmation.RequiresApproval)
	return &ReplanResult{Trigger: t, Proposal: p}, nil
}

// reload refreshes the trigger after the proposal moved on.
func (s *replanService) reload(ctx context.Context, result *ReplanResult) (*ReplanResult, error) {
	t, err := getTrigger(ctx, s.stores, result.Trigger.ID)
	if err != nil {
		return nil, err
	}
	p, err := getProposal(ctx, s.stores, result.Proposal.ID)
	if err != nil {
		return nil, err
	}
	return &ReplanResult{Trigger: t, Proposal: p}, nil
}

func requestLedgerKey(requestID string) string {
	return "request:" + requestID
}
