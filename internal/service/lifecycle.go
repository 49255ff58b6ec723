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
	"github.com/EI94/Urbanova-sub017/internal/store"
)

// SystemApprover is recorded on proposals approved by the auto-apply policy.
const SystemApprover = "system"

type LifecycleService interface {
	GetProposal(ctx context.Context, proposalID int64) (*model.Proposal, error)
	Approve(ctx context.Context, proposalID int64, approver string) (*model.Proposal, error)
	Reject(ctx context.Context, proposalID int64, reason string) (*model.Proposal, error)
	// Apply makes an approved proposal's timeline the live WBS. It fails
	// with ErrStaleBaseVersion when the live version moved since generation.
	Apply(ctx context.Context, proposalID int64) (*model.Proposal, error)

	// BeginAnalysis commits detected -> analyzing before a proposal is
	// generated. A trigger already analyzing is returned unchanged; any other
	// status fails with ErrInvalidTransition.
	BeginAnalysis(ctx context.Context, triggerID int64) (*model.Trigger, error)
	// RecordProposal stores a draft proposal as proposed and moves its trigger
	// to proposed. It fails with ErrStaleBaseVersion when the live version
	// moved since generation.
	RecordProposal(ctx context.Context, p *model.Proposal) (*model.Trigger, error)
	// Dismiss rejects a trigger that produced no proposal.
	Dismiss(ctx context.Context, triggerID int64, reason string) (*model.Trigger, error)
	// Supersede rejects a proposal without its trigger and sends the trigger
	// back to analyzing.
	Supersede(ctx context.Context, proposalID int64, reason string) (*model.Trigger, error)
}

type lifecycleService struct {
	stores   StoreProvider
	txRunner TxRunner
	notifier queue.Notifier
	now      func() time.Time
}

func NewLifecycleService(stores StoreProvider, txRunner TxRunner, notifier queue.Notifier, now func() time.Time) LifecycleService {
	if now == nil {
		now = time.Now
	}
	return &lifecycleService{
		stores:   stores,
		txRunner: txRunner,
		notifier: notifier,
		now:      now,
	}
}

func (s *lifecycleService) GetProposal(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	return getProposal(ctx, s.stores, proposalID)
}

func (s *lifecycleService) Approve(ctx context.Context, proposalID int64, approver string) (*model.Proposal, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: &proposalID,
		Component:  "timeline.service.lifecycle",
	})

	if approver == "" {
		return nil, model.NewValidationError("approver", "approver is required")
	}

	var approved *model.Proposal
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		p, err := getProposal(ctx, sp, proposalID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if p.Status == model.ProposalStatusProposed && p.Confirmation.Expired(now) {
			return &model.EngineError{
				Kind:       model.ErrProposalExpired,
				ProposalID: p.ID,
				TriggerID:  p.TriggerID,
				Detail:     fmt.Sprintf("approval deadline %s passed", p.Confirmation.Deadline.Format(time.RFC3339)),
			}
		}
		if err := p.Transition(model.ProposalStatusApproved, now); err != nil {
			return err
		}
		p.Confirmation.ApprovedBy = approver
		p.Confirmation.ApprovedAt = &now

		t, err := getTrigger(ctx, sp, p.TriggerID)
		if err != nil {
			return err
		}
		if err := t.Transition(model.TriggerStatusApproved, now); err != nil {
			return err
		}

		if err := sp.Proposals().Update(ctx, p); err != nil {
			return fmt.Errorf("updating proposal: %w", err)
		}
		if err := sp.Triggers().Update(ctx, t); err != nil {
			return fmt.Errorf("updating trigger: %w", err)
		}
		approved = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "proposal approved",
		"approver", approver,
		"auto_apply", approved.Confirmation.AutoApply)

	if approved.Confirmation.AutoApply {
		return s.Apply(ctx, proposalID)
	}
	return approved, nil
}

func (s *lifecycleService) Reject(ctx context.Context, proposalID int64, reason string) (*model.Proposal, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: &proposalID,
		Component:  "timeline.service.lifecycle",
	})

	var rejected *model.Proposal
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		p, err := getProposal(ctx, sp, proposalID)
		if err != nil {
			return err
		}
		rejected, err = rejectProposal(ctx, sp, p, reason, s.now().UTC(), true)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "proposal rejected", "reason", reason)
	notify(ctx, s.notifier, queue.Notification{
		Kind:       queue.NotificationProposalRejected,
		ProjectID:  rejected.ProjectID,
		TriggerID:  rejected.TriggerID,
		ProposalID: rejected.ID,
		Payload:    rejected,
	})
	return rejected, nil
}

func (s *lifecycleService) Apply(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProposalID: &proposalID,
		Component:  "timeline.service.lifecycle",
	})
	span := logger.StartSpan(ctx, "timeline.lifecycle.apply")
	defer span.End()
	ctx = span.Context()

	var applied *model.Proposal
	var version int64
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		p, err := getProposal(ctx, sp, proposalID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if p.Status != model.ProposalStatusApproved {
			return &model.EngineError{
				Kind:       model.ErrInvalidTransition,
				ProposalID: p.ID,
				TriggerID:  p.TriggerID,
				Detail:     fmt.Sprintf("proposal %s -> %s", p.Status, model.ProposalStatusApplied),
			}
		}

		live, err := getTimeline(ctx, sp, p.ProjectID)
		if err != nil {
			return err
		}
		if live.Version != p.BaseVersion {
			return staleError(p, live.Version)
		}

		next := p.ProposedTimeline.Clone()
		next.Version = live.Version + 1
		next.Status = model.WBSStatusActive
		next.CreatedAt = live.CreatedAt
		next.LastRegeneratedAt = &now
		if err := sp.Timelines().PutIfVersionMatches(ctx, &next, live.Version); err != nil {
			if errors.Is(err, store.ErrVersionMismatch) {
				return staleError(p, live.Version)
			}
			return fmt.Errorf("replacing live timeline: %w", err)
		}

		if err := p.Transition(model.ProposalStatusApplied, now); err != nil {
			return err
		}
		p.AppliedAt = &now
		if err := sp.Proposals().Update(ctx, p); err != nil {
			return fmt.Errorf("updating proposal: %w", err)
		}

		t, err := getTrigger(ctx, sp, p.TriggerID)
		if err != nil {
			return err
		}
		if err := t.Transition(model.TriggerStatusApplied, now); err != nil {
			return err
		}
		if err := sp.Triggers().Update(ctx, t); err != nil {
			return fmt.Errorf("updating trigger: %w", err)
		}

		if err := sp.Timelines().AppendHistory(ctx, p.ProjectID, p); err != nil {
			return fmt.Errorf("appending re-plan history: %w", err)
		}

		applied = p
		version = next.Version
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.InfoContext(ctx, "proposal applied",
		"project_id", applied.ProjectID,
		"version", version,
		"total_delay_days", applied.Impact.TotalDelayDays)
	notify(ctx, s.notifier, queue.Notification{
		Kind:       queue.NotificationProposalApplied,
		ProjectID:  applied.ProjectID,
		TriggerID:  applied.TriggerID,
		ProposalID: applied.ID,
		Payload:    applied,
	})
	return applied, nil
}

func (s *lifecycleService) BeginAnalysis(ctx context.Context, triggerID int64) (*model.Trigger, error) {
	var t *model.Trigger
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		t, err = getTrigger(ctx, sp, triggerID)
		if err != nil {
			return err
		}
		switch t.Status {
		case model.TriggerStatusAnalyzing:
			return nil
		case model.TriggerStatusDetected:
		default:
			// Re-analysis of a proposed trigger goes through Supersede.
			return &model.EngineError{
				Kind:      model.ErrInvalidTransition,
				TriggerID: t.ID,
				Detail:    fmt.Sprintf("trigger %s -> %s", t.Status, model.TriggerStatusAnalyzing),
			}
		}
		if err := t.Transition(model.TriggerStatusAnalyzing, s.now().UTC()); err != nil {
			return err
		}
		return sp.Triggers().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *lifecycleService) RecordProposal(ctx context.Context, p *model.Proposal) (*model.Trigger, error) {
	var t *model.Trigger
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		t, err = getTrigger(ctx, sp, p.TriggerID)
		if err != nil {
			return err
		}
		live, err := getTimeline(ctx, sp, p.ProjectID)
		if err != nil {
			return err
		}
		if live.Version != p.BaseVersion {
			return staleError(p, live.Version)
		}

		now := s.now().UTC()
		if err := p.Transition(model.ProposalStatusProposed, now); err != nil {
			return err
		}
		if err := sp.Proposals().Create(ctx, p); err != nil {
			return fmt.Errorf("storing proposal: %w", err)
		}
		if err := t.Transition(model.TriggerStatusProposed, now); err != nil {
			return err
		}
		t.ProposalID = &p.ID
		if err := sp.Triggers().Update(ctx, t); err != nil {
			return fmt.Errorf("updating trigger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *lifecycleService) Dismiss(ctx context.Context, triggerID int64, reason string) (*model.Trigger, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TriggerID: &triggerID,
		Component: "timeline.service.lifecycle",
	})

	var t *model.Trigger
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		t, err = getTrigger(ctx, sp, triggerID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if t.Status == model.TriggerStatusDetected {
			if err := t.Transition(model.TriggerStatusAnalyzing, now); err != nil {
				return err
			}
		}
		if err := t.Transition(model.TriggerStatusRejected, now); err != nil {
			return err
		}
		return sp.Triggers().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "trigger dismissed", "reason", reason)
	return t, nil
}

func (s *lifecycleService) Supersede(ctx context.Context, proposalID int64, reason string) (*model.Trigger, error) {
	var t *model.Trigger
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		p, err := getProposal(ctx, sp, proposalID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if _, err := rejectProposal(ctx, sp, p, reason, now, false); err != nil {
			return err
		}
		t, err = getTrigger(ctx, sp, p.TriggerID)
		if err != nil {
			return err
		}
		if err := t.Transition(model.TriggerStatusAnalyzing, now); err != nil {
			return err
		}
		return sp.Triggers().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// notify publishes after commit. Failures are logged; the state change stands.
func notify(ctx context.Context, notifier queue.Notifier, n queue.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		slog.WarnContext(ctx, "failed to publish notification",
			"error", err,
			"kind", n.Kind)
	}
}

// rejectProposal moves p to rejected and, when rejectTrigger is set, its
// trigger too. Terminal triggers are left untouched.
func rejectProposal(ctx context.Context, sp StoreProvider, p *model.Proposal, reason string, now time.Time, rejectTrigger bool) (*model.Proposal, error) {
	if err := p.Transition(model.ProposalStatusRejected, now); err != nil {
		return nil, err
	}
	p.Confirmation.RejectedReason = reason
	if err := sp.Proposals().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("updating proposal: %w", err)
	}

	if !rejectTrigger {
		return p, nil
	}
	t, err := getTrigger(ctx, sp, p.TriggerID)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return p, nil
	}
	if err := t.Transition(model.TriggerStatusRejected, now); err != nil {
		return nil, err
	}
	if err := sp.Triggers().Update(ctx, t); err != nil {
		return nil, fmt.Errorf("updating trigger: %w", err)
	}
	return p, nil
}

func staleError(p *model.Proposal, liveVersion int64) error {
	return &model.EngineError{
		Kind:       model.ErrStaleBaseVersion,
		ProposalID: p.ID,
		TriggerID:  p.TriggerID,
		Detail:     fmt.Sprintf("proposal base version %d, live version %d", p.BaseVersion, liveVersion),
	}
}
