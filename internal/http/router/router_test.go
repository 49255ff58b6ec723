package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/http/middleware"
	"github.com/EI94/Urbanova-sub017/internal/http/router"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/service"
	"github.com/EI94/Urbanova-sub017/internal/store"
)

var _ = Describe("SetupRoutes", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		mem := store.NewMemory()
		services := service.NewServices(
			mem.Stores(),
			service.NewMemoryTxRunner(mem),
			queue.NewNopNotifier(slog.Default()),
			replan.DefaultConfig(),
		)

		engine = gin.New()
		engine.Use(middleware.Recovery())
		engine.Use(middleware.Logger())
		router.SetupRoutes(engine, services, router.RouterConfig{TraceHeaderName: "X-Trace-Id"})
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	It("serves the health check", func() {
		w := do(http.MethodGet, "/health", "")
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("drives a fact from detection to an applied timeline", func() {
		w := do(http.MethodPost, "/api/v1/projects/p1/timeline", `{
			"start_date": "2026-03-02T00:00:00Z",
			"tasks": [
				{"id": "A", "name": "Excavation", "duration": 5},
				{"id": "B", "name": "Foundations", "duration": 3},
				{"id": "C", "name": "Structure", "duration": 2}
			],
			"dependencies": [
				{"from": "A", "to": "B", "type": "finish_to_start"},
				{"from": "B", "to": "C", "type": "finish_to_start"}
			]
		}`)
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

		w = do(http.MethodPost, "/api/v1/facts", `{
			"fact_id": "sal-1",
			"fact_version": 1,
			"fact_type": "sal",
			"project_id": "p1",
			"affected_task_refs": ["B"],
			"reported_delay_days": 10,
			"occurred_at": "2026-02-28T00:00:00Z"
		}`)
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		var ingested dto.ReplanResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &ingested)).To(Succeed())
		Expect(ingested.Proposal.Status).To(Equal(model.ProposalStatusProposed))
		proposalPath := fmt.Sprintf("/api/v1/proposals/%d", ingested.Proposal.ID)

		w = do(http.MethodGet, "/api/v1/projects/p1/triggers", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var triggers dto.TriggerListResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &triggers)).To(Succeed())
		Expect(triggers.Triggers).To(HaveLen(1))

		w = do(http.MethodPost, proposalPath+"/apply", "")
		Expect(w.Code).To(Equal(http.StatusConflict))

		w = do(http.MethodPost, proposalPath+"/approve", `{"approver": "pm@urbanova.test"}`)
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

		w = do(http.MethodPost, proposalPath+"/apply", "")
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

		w = do(http.MethodGet, "/api/v1/projects/p1/timeline", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var live model.WBS
		Expect(json.Unmarshal(w.Body.Bytes(), &live)).To(Succeed())
		Expect(live.Version).To(Equal(int64(2)))
		Expect(live.CriticalPathDuration).To(Equal(20))

		w = do(http.MethodGet, "/api/v1/projects/p1/history", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var history dto.RePlanHistoryResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &history)).To(Succeed())
		Expect(history.Proposals).To(HaveLen(1))
		Expect(history.Proposals[0].ID).To(Equal(ingested.Proposal.ID))
	})

	It("returns 404 for a project without a timeline", func() {
		w := do(http.MethodGet, "/api/v1/projects/nope/timeline/stats", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("serves schemas", func() {
		w := do(http.MethodGet, "/api/v1/schemas/fact-change", "")
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("turns a panic into a 500 error body", func() {
		engine.GET("/boom", func(c *gin.Context) { panic("boom") })

		w := do(http.MethodGet, "/boom", "")

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		var resp dto.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Code).To(Equal(dto.CodeInternal))
	})
})
