package handler_test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/http/handler"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

var _ = Describe("ReplanHandler", func() {
	var (
		router *gin.Engine
		svc    *mockReplanService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockReplanService{}
		h := handler.NewReplanHandler(svc, "X-Trace-Id")
		router.POST("/facts", h.IngestFact)
		router.POST("/projects/:projectID/replan", h.RequestRePlan)
		router.POST("/proposals/:proposalID/regenerate", h.Regenerate)
	})

	result := func(duplicate bool) *service.ReplanResult {
		pid := int64(12)
		return &service.ReplanResult{
			Trigger:   &model.Trigger{ID: 11, ProjectID: "p1", Status: model.TriggerStatusProposed, ProposalID: &pid},
			Proposal:  &model.Proposal{ID: 12, TriggerID: 11, Status: model.ProposalStatusProposed},
			Duplicate: duplicate,
		}
	}

	Describe("IngestFact", func() {
		factBody := `{
			"fact_id": "sal-1",
			"fact_version": 2,
			"fact_type": "sal",
			"project_id": "p1",
			"affected_task_refs": ["B"],
			"reported_delay_days": 10,
			"occurred_at": "2026-02-28T00:00:00Z",
			"detail": {"sal_number": 3, "planned_percent": 50, "actual_percent": 30}
		}`

		It("decodes the variant detail and returns 201", func() {
			var got model.FactChange
			svc.ingestFn = func(_ context.Context, change model.FactChange) (*service.ReplanResult, error) {
				got = change
				return result(false), nil
			}

			w := doJSON(router, http.MethodPost, "/facts", factBody)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.FactVersion).To(Equal(int64(2)))
			Expect(got.Detail).To(Equal(model.SALFact{SALNumber: 3, PlannedPercent: 50, ActualPercent: 30}))

			var resp dto.ReplanResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Trigger.ID).To(Equal(int64(11)))
			Expect(resp.Proposal.ID).To(Equal(int64(12)))
		})

		It("returns 200 for a re-delivered fact", func() {
			svc.ingestFn = func(_ context.Context, _ model.FactChange) (*service.ReplanResult, error) {
				return result(true), nil
			}

			w := doJSON(router, http.MethodPost, "/facts", factBody)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp dto.ReplanResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Duplicate).To(BeTrue())
		})

		It("returns 422 for an unknown fact type with a detail", func() {
			w := doJSON(router, http.MethodPost, "/facts", `{"fact_id":"x","fact_type":"weather","project_id":"p1","detail":{"rain_mm":40}}`)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decodeError(w).Code).To(Equal(dto.CodeUnknownFactType))
		})

		It("returns 422 when no open task is affected", func() {
			svc.ingestFn = func(_ context.Context, _ model.FactChange) (*service.ReplanResult, error) {
				return nil, &model.EngineError{Kind: model.ErrNoAffectedTasks, TriggerID: 11}
			}

			w := doJSON(router, http.MethodPost, "/facts", factBody)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			resp := decodeError(w)
			Expect(resp.Code).To(Equal(dto.CodeNoAffectedTasks))
			Expect(resp.TriggerID).To(Equal(int64(11)))
		})
	})

	Describe("RequestRePlan", func() {
		It("takes the project from the path", func() {
			var got model.RePlanRequest
			svc.requestFn = func(_ context.Context, req model.RePlanRequest) (*service.ReplanResult, error) {
				got = req
				return result(false), nil
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/replan", map[string]any{
				"type":              "scope_change",
				"cause":             "Extra basement level",
				"affected_task_ids": []string{"B"},
				"delay_days":        4,
				"request_id":        "req-1",
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.ProjectID).To(Equal("p1"))
			Expect(got.Type).To(Equal(model.TriggerTypeScopeChange))
			Expect(got.RequestID).To(Equal("req-1"))
		})

		It("returns 400 without affected tasks", func() {
			w := doJSON(router, http.MethodPost, "/projects/p1/replan", map[string]any{
				"type":  "scope_change",
				"cause": "Extra basement level",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 422 with the field for a validation error", func() {
			svc.requestFn = func(_ context.Context, _ model.RePlanRequest) (*service.ReplanResult, error) {
				return nil, model.NewValidationError("type", `unknown trigger type "weather"`)
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/replan", map[string]any{
				"type":              "weather",
				"cause":             "Storm",
				"affected_task_ids": []string{"B"},
			})

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			resp := decodeError(w)
			Expect(resp.Code).To(Equal(dto.CodeValidation))
			Expect(resp.Field).To(Equal("type"))
		})
	})

	Describe("Regenerate", func() {
		It("returns 201 with the new proposal", func() {
			var got int64
			svc.regenerateFn = func(_ context.Context, proposalID int64) (*service.ReplanResult, error) {
				got = proposalID
				return result(false), nil
			}

			w := doJSON(router, http.MethodPost, "/proposals/9/regenerate", nil)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got).To(Equal(int64(9)))
		})

		It("returns 400 for a malformed proposal id", func() {
			w := doJSON(router, http.MethodPost, "/proposals/abc/regenerate", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
