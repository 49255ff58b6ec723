package queue_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
)

const salPayload = `{
	"fact_id": "sal-12",
	"fact_version": 3,
	"fact_type": "sal",
	"project_id": "proj-1",
	"affected_task_refs": ["B"],
	"reported_delay_days": 10,
	"occurred_at": "2026-03-01T00:00:00Z",
	"detail": {"sal_number": 12, "planned_percent": 60, "actual_percent": 45}
}`

var _ = Describe("ParseMessage", func() {
	It("decodes the fact change and its typed detail", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "1-0",
			Values: map[string]any{
				"task_type": "fact_change",
				"payload":   salPayload,
				"attempt":   "2",
				"trace_id":  "abc123",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ID).To(Equal("1-0"))
		Expect(msg.TaskType).To(Equal(queue.TaskTypeFactChange))
		Expect(msg.Attempt).To(Equal(2))
		Expect(msg.TraceID).To(Equal("abc123"))
		Expect(msg.Change.FactID).To(Equal("sal-12"))
		Expect(msg.Change.FactVersion).To(Equal(int64(3)))
		Expect(msg.Change.AffectedTaskRefs).To(ConsistOf("B"))

		detail, ok := msg.Change.Detail.(model.SALFact)
		Expect(ok).To(BeTrue())
		Expect(detail.ActualPercent).To(Equal(45.0))
	})

	It("defaults the task type and the attempt", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID:     "2-0",
			Values: map[string]any{"payload": salPayload},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.TaskType).To(Equal(queue.TaskTypeFactChange))
		Expect(msg.Attempt).To(Equal(1))
	})

	DescribeTable("rejects malformed entries",
		func(values map[string]any, substr string) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "3-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(substr)))
		},
		Entry("missing payload", map[string]any{"task_type": "fact_change"}, "missing payload"),
		Entry("unknown task type", map[string]any{"task_type": "repo_sync", "payload": salPayload}, "unknown task_type"),
		Entry("payload is not json", map[string]any{"payload": "{not json"}, "decoding payload"),
		Entry("bad attempt", map[string]any{"payload": salPayload, "attempt": "x"}, "parsing attempt"),
		Entry("unknown fact type", map[string]any{"payload": `{"fact_id":"f","fact_type":"weather","project_id":"p","detail":{"x":1}}`}, "unknown fact type"),
	)
})
