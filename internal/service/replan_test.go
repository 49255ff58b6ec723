package service_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

var _ = Describe("ReplanService", func() {
	var (
		ctx context.Context
		f   *fixture
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture()
	})

	Describe("IngestFact", func() {
		BeforeEach(func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())
		})

		It("detects a trigger and proposes a re-plan awaiting approval", func() {
			result, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Duplicate).To(BeFalse())
			Expect(result.Trigger.Type).To(Equal(model.TriggerTypeSALDelay))
			Expect(result.Trigger.Severity).To(Equal(model.SeverityMedium))
			Expect(result.Trigger.Status).To(Equal(model.TriggerStatusProposed))
			Expect(result.Trigger.ProposalID).To(Equal(&result.Proposal.ID))
			Expect(result.Trigger.Impact.AffectedTaskIDs).To(Equal([]string{"B", "C"}))

			Expect(result.Proposal.Status).To(Equal(model.ProposalStatusProposed))
			Expect(result.Proposal.BaseVersion).To(Equal(int64(1)))
			Expect(result.Proposal.Impact.TotalDelayDays).To(Equal(10))
			Expect(result.Proposal.ProposedTimeline.CriticalPathDuration).To(Equal(20))
			Expect(result.Proposal.Confirmation.RequiresApproval).To(BeTrue())
			Expect(result.Proposal.Confirmation.Approver).To(Equal("pm@urbanova.test"))

			Expect(f.notifier.kinds()).To(Equal([]queue.NotificationKind{queue.NotificationTriggerProposed}))
			Expect(f.notifier.notifications[0].ProposalID).To(Equal(result.Proposal.ID))

			live, err := f.timelines.GetTimeline(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(live.Version).To(Equal(int64(1)))
			Expect(live.CriticalPathDuration).To(Equal(10))
		})

		It("commits analyzing before the proposal is generated", func() {
			var seen []model.TriggerStatus
			f.txRunner = &spyTxRunner{
				inner: service.NewMemoryTxRunner(f.mem),
				beforeTx: func(ctx context.Context) {
					active, err := f.mem.Stores().Triggers().ListActiveByProject(ctx, "p1")
					Expect(err).NotTo(HaveOccurred())
					for _, t := range active {
						seen = append(seen, t.Status)
					}
				},
			}
			f.wire()

			result, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Trigger.Status).To(Equal(model.TriggerStatusProposed))

			// Statuses at the start of the analysis and proposal transactions.
			Expect(seen).To(Equal([]model.TriggerStatus{
				model.TriggerStatusDetected,
				model.TriggerStatusAnalyzing,
			}))
		})

		It("creates one trigger for concurrent deliveries of the same fact", func() {
			const deliveries = 4
			var wg sync.WaitGroup
			results := make([]*service.ReplanResult, deliveries)
			errs := make([]error, deliveries)
			for i := range deliveries {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i], errs[i] = f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
				}()
			}
			wg.Wait()

			ids := map[int64]bool{}
			for i := range deliveries {
				Expect(errs[i]).NotTo(HaveOccurred())
				ids[results[i].Trigger.ID] = true
			}
			Expect(ids).To(HaveLen(1))

			active, err := f.timelines.GetActiveTriggers(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
		})

		It("classifies a re-delivered fact only once", func() {
			first, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())

			again, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Duplicate).To(BeTrue())
			Expect(again.Trigger.ID).To(Equal(first.Trigger.ID))
			Expect(again.Proposal.ID).To(Equal(first.Proposal.ID))

			triggers, err := f.timelines.GetActiveTriggers(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(triggers).To(HaveLen(1))
			Expect(f.notifier.notifications).To(HaveLen(1))
		})

		It("treats a new fact version as a new signal", func() {
			first, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())

			second, err := f.replan.IngestFact(ctx, salFact("sal-1", 2, "B", 12))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Duplicate).To(BeFalse())
			Expect(second.Trigger.ID).NotTo(Equal(first.Trigger.ID))
		})

		It("auto-applies a low severity delay absorbed by slack", func() {
			g := newFixture()
			_, err := g.timelines.GenerateTimeline(ctx, diamondParams())
			Expect(err).NotTo(HaveOccurred())

			result, err := g.replan.IngestFact(ctx, salFact("sal-9", 1, "C", 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Proposal.Confirmation.AutoApply).To(BeTrue())
			Expect(result.Proposal.Status).To(Equal(model.ProposalStatusApplied))
			Expect(result.Proposal.Confirmation.ApprovedBy).To(Equal(service.SystemApprover))
			Expect(result.Trigger.Status).To(Equal(model.TriggerStatusApplied))

			live, err := g.timelines.GetTimeline(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(live.Version).To(Equal(int64(2)))
			Expect(live.CriticalPathDuration).To(Equal(5))
			Expect(live.LastRegeneratedAt).NotTo(BeNil())

			Expect(g.notifier.kinds()).To(Equal([]queue.NotificationKind{
				queue.NotificationTriggerProposed,
				queue.NotificationProposalApplied,
			}))
		})

		It("dismisses a fact that only touches completed work", func() {
			g := newFixture()
			params := chainParams()
			params.Tasks[2].Status = model.TaskStatusCompleted
			params.Tasks[2].Progress = 100
			_, err := g.timelines.GenerateTimeline(ctx, params)
			Expect(err).NotTo(HaveOccurred())

			_, err = g.replan.IngestFact(ctx, salFact("sal-2", 1, "C", 5))
			Expect(errors.Is(err, model.ErrNoAffectedTasks)).To(BeTrue())

			triggers, err := g.timelines.GetActiveTriggers(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(triggers).To(BeEmpty())
		})

		It("fails with ErrUnknownTask for an unknown task reference", func() {
			_, err := f.replan.IngestFact(ctx, salFact("sal-3", 1, "Z", 5))
			Expect(errors.Is(err, model.ErrUnknownTask)).To(BeTrue())
		})

		It("fails with ErrTimelineNotFound for an unknown project", func() {
			change := salFact("sal-4", 1, "B", 5)
			change.ProjectID = "other"
			_, err := f.replan.IngestFact(ctx, change)
			Expect(errors.Is(err, model.ErrTimelineNotFound)).To(BeTrue())
		})

		It("propagates transaction failures", func() {
			boom := errors.New("connection reset")
			f.txRunner = &mockTxRunner{
				withTxFn: func(ctx context.Context, fn func(stores service.StoreProvider) error) error {
					return boom
				},
			}
			f.wire()

			_, err := f.replan.IngestFact(ctx, salFact("sal-5", 1, "B", 5))
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(model.IsPermanent(err)).To(BeFalse())
		})
	})

	Describe("RequestRePlan", func() {
		BeforeEach(func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())
		})

		It("honours an explicit severity", func() {
			result, err := f.replan.RequestRePlan(ctx, model.RePlanRequest{
				ProjectID:       "p1",
				Type:            model.TriggerTypeRiskMaterialized,
				Cause:           "Crane failure on site",
				AffectedTaskIDs: []string{"A"},
				DelayDays:       3,
				Severity:        model.SeverityCritical,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Trigger.Severity).To(Equal(model.SeverityCritical))
			Expect(result.Trigger.Cause).To(Equal("Crane failure on site"))
			Expect(result.Proposal.Impact.TotalDelayDays).To(Equal(3))
			Expect(result.Proposal.Impact.RiskAssessment.Level).To(Equal(model.SeverityCritical))
		})

		It("is idempotent per request id", func() {
			req := model.RePlanRequest{
				ProjectID:       "p1",
				Type:            model.TriggerTypeScopeChange,
				Cause:           "Extra basement level",
				AffectedTaskIDs: []string{"B"},
				DelayDays:       4,
				RequestID:       "req-77",
			}
			first, err := f.replan.RequestRePlan(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			again, err := f.replan.RequestRePlan(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Duplicate).To(BeTrue())
			Expect(again.Trigger.ID).To(Equal(first.Trigger.ID))
		})

		It("rejects an invalid request", func() {
			_, err := f.replan.RequestRePlan(ctx, model.RePlanRequest{ProjectID: "p1", Type: "weather"})
			Expect(errors.Is(err, model.ErrValidation)).To(BeTrue())
		})
	})

	Describe("RegenerateProposal", func() {
		It("supersedes a stale proposal with one against the live version", func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())

			first, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())
			second, err := f.replan.IngestFact(ctx, salFact("sal-2", 1, "C", 8))
			Expect(err).NotTo(HaveOccurred())

			_, err = f.lifecycle.Approve(ctx, first.Proposal.ID, "pm@urbanova.test")
			Expect(err).NotTo(HaveOccurred())
			_, err = f.lifecycle.Apply(ctx, first.Proposal.ID)
			Expect(err).NotTo(HaveOccurred())

			regenerated, err := f.replan.RegenerateProposal(ctx, second.Proposal.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(regenerated.Trigger.ID).To(Equal(second.Trigger.ID))
			Expect(regenerated.Proposal.ID).NotTo(Equal(second.Proposal.ID))
			Expect(regenerated.Proposal.BaseVersion).To(Equal(int64(2)))
			Expect(regenerated.Proposal.ProposedTimeline.CriticalPathDuration).To(Equal(28))

			old, err := f.lifecycle.GetProposal(ctx, second.Proposal.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(old.Status).To(Equal(model.ProposalStatusRejected))
			Expect(old.Confirmation.RejectedReason).To(Equal("superseded by regeneration"))
		})

		It("refuses to regenerate an applied proposal", func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())
			result, err := f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())
			_, err = f.lifecycle.Approve(ctx, result.Proposal.ID, "pm@urbanova.test")
			Expect(err).NotTo(HaveOccurred())
			_, err = f.lifecycle.Apply(ctx, result.Proposal.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = f.replan.RegenerateProposal(ctx, result.Proposal.ID)
			Expect(errors.Is(err, model.ErrInvalidTransition)).To(BeTrue())
		})
	})
})
