package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

var _ = Describe("TimelineService", func() {
	var (
		ctx context.Context
		f   *fixture
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture()
	})

	Describe("GenerateTimeline", func() {
		It("schedules the project and stores version 1", func() {
			wbs, err := f.timelines.GenerateTimeline(ctx, chainParams())

			Expect(err).NotTo(HaveOccurred())
			Expect(wbs.Version).To(Equal(int64(1)))
			Expect(wbs.Status).To(Equal(model.WBSStatusActive))
			Expect(wbs.CriticalPath).To(Equal([]string{"A", "B", "C"}))
			Expect(wbs.CriticalPathDuration).To(Equal(10))
			Expect(wbs.EndDate).To(Equal(projectStart.AddDate(0, 0, 10)))

			stored, err := f.timelines.GetTimeline(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Version).To(Equal(int64(1)))
			Expect(stored.CriticalPath).To(Equal([]string{"A", "B", "C"}))
		})

		It("refuses to overwrite an existing timeline", func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())

			_, err = f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(errors.Is(err, model.ErrTimelineExists)).To(BeTrue())
		})

		It("reports the dependency that closes a cycle", func() {
			params := chainParams()
			params.Dependencies = append(params.Dependencies, fs("C", "A"))

			_, err := f.timelines.GenerateTimeline(ctx, params)

			Expect(errors.Is(err, model.ErrCycleDetected)).To(BeTrue())
			engineErr, ok := model.AsEngineError(err)
			Expect(ok).To(BeTrue())
			Expect(engineErr.DependencyID).To(Equal("C->A"))

			_, err = f.timelines.GetTimeline(ctx, "p1")
			Expect(errors.Is(err, model.ErrTimelineNotFound)).To(BeTrue())
		})

		It("rejects a dependency on an unknown task", func() {
			params := chainParams()
			params.Dependencies = append(params.Dependencies, fs("C", "Z"))

			_, err := f.timelines.GenerateTimeline(ctx, params)
			Expect(errors.Is(err, model.ErrUnknownTask)).To(BeTrue())
		})

		It("rejects an empty project", func() {
			_, err := f.timelines.GenerateTimeline(ctx, service.GenerateTimelineParams{ProjectID: "p1"})
			Expect(errors.Is(err, model.ErrValidation)).To(BeTrue())
		})
	})

	Describe("GetTimeline", func() {
		It("fails with ErrTimelineNotFound for an unknown project", func() {
			_, err := f.timelines.GetTimeline(ctx, "nope")
			Expect(errors.Is(err, model.ErrTimelineNotFound)).To(BeTrue())
		})
	})

	Describe("GetTimelineStats", func() {
		It("summarises the live timeline", func() {
			params := chainParams()
			params.Tasks[0].Status = model.TaskStatusCompleted
			params.Tasks[0].Progress = 100
			params.Tasks[1].Status = model.TaskStatusInProgress
			params.Tasks[1].Progress = 50
			_, err := f.timelines.GenerateTimeline(ctx, params)
			Expect(err).NotTo(HaveOccurred())

			_, err = f.replan.IngestFact(ctx, salFact("sal-1", 1, "B", 10))
			Expect(err).NotTo(HaveOccurred())

			stats, err := f.timelines.GetTimelineStats(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalTasks).To(Equal(3))
			Expect(stats.CompletedTasks).To(Equal(1))
			Expect(stats.InProgressTasks).To(Equal(1))
			Expect(stats.NotStartedTasks).To(Equal(1))
			Expect(stats.CriticalTasks).To(Equal(3))
			Expect(stats.CriticalPathLength).To(Equal(3))
			Expect(stats.CriticalPathDuration).To(Equal(10))
			Expect(stats.ActiveTriggers).To(Equal(1))
			Expect(stats.RePlanCount).To(Equal(0))
			Expect(stats.DaysRemaining).To(Equal(11))
		})
	})

	Describe("GetActiveTriggers and GetRePlanHistory", func() {
		It("fail with ErrTimelineNotFound for an unknown project", func() {
			_, err := f.timelines.GetActiveTriggers(ctx, "nope")
			Expect(errors.Is(err, model.ErrTimelineNotFound)).To(BeTrue())

			_, err = f.timelines.GetRePlanHistory(ctx, "nope")
			Expect(errors.Is(err, model.ErrTimelineNotFound)).To(BeTrue())
		})

		It("are empty for a fresh timeline", func() {
			_, err := f.timelines.GenerateTimeline(ctx, chainParams())
			Expect(err).NotTo(HaveOccurred())

			triggers, err := f.timelines.GetActiveTriggers(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(triggers).To(BeEmpty())

			history, err := f.timelines.GetRePlanHistory(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})
	})
})
