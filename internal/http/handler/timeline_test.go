package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/http/handler"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		Expect(err).NotTo(HaveOccurred())
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) dto.ErrorResponse {
	var resp dto.ErrorResponse
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("TimelineHandler", func() {
	var (
		router *gin.Engine
		svc    *mockTimelineService
		start  time.Time
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockTimelineService{}
		start = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
		h := handler.NewTimelineHandler(svc)
		router.POST("/projects/:projectID/timeline", h.Generate)
		router.GET("/projects/:projectID/timeline", h.Get)
		router.GET("/projects/:projectID/timeline/stats", h.Stats)
		router.GET("/projects/:projectID/triggers", h.ActiveTriggers)
		router.GET("/projects/:projectID/history", h.History)
	})

	generateBody := func() map[string]any {
		return map[string]any{
			"start_date": start,
			"tasks": []model.Task{
				{ID: "A", Name: "Excavation", Duration: 5},
				{ID: "B", Name: "Foundations", Duration: 3},
			},
			"dependencies": []model.Dependency{
				{From: "A", To: "B", Type: model.DependencyFinishToStart},
			},
		}
	}

	Describe("Generate", func() {
		It("returns 201 with the scheduled timeline", func() {
			var got service.GenerateTimelineParams
			svc.generateFn = func(_ context.Context, params service.GenerateTimelineParams) (*model.WBS, error) {
				got = params
				return &model.WBS{ProjectID: params.ProjectID, Version: 1, CriticalPath: []string{"A", "B"}, CriticalPathDuration: 8}, nil
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", generateBody())

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.ProjectID).To(Equal("p1"))
			Expect(got.Tasks).To(HaveLen(2))
			Expect(got.StartDate.Equal(start)).To(BeTrue())

			var resp model.WBS
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.CriticalPath).To(Equal([]string{"A", "B"}))
			Expect(resp.CriticalPathDuration).To(Equal(8))
		})

		It("returns 400 without tasks", func() {
			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", map[string]any{"start_date": start})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w).Code).To(Equal(dto.CodeBadRequest))
		})

		It("returns 400 on malformed json", func() {
			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", `{`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 422 with the offending dependency on a cycle", func() {
			svc.generateFn = func(_ context.Context, _ service.GenerateTimelineParams) (*model.WBS, error) {
				return nil, &model.EngineError{Kind: model.ErrCycleDetected, DependencyID: "B->A"}
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", generateBody())

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			resp := decodeError(w)
			Expect(resp.Code).To(Equal(dto.CodeCycleDetected))
			Expect(resp.DependencyID).To(Equal("B->A"))
		})

		It("returns 422 with the task id for an unknown task", func() {
			svc.generateFn = func(_ context.Context, _ service.GenerateTimelineParams) (*model.WBS, error) {
				return nil, &model.EngineError{Kind: model.ErrUnknownTask, TaskID: "Z"}
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", generateBody())

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decodeError(w).TaskID).To(Equal("Z"))
		})

		It("returns 409 when the project already has a timeline", func() {
			svc.generateFn = func(_ context.Context, _ service.GenerateTimelineParams) (*model.WBS, error) {
				return nil, fmt.Errorf("%w: p1", model.ErrTimelineExists)
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", generateBody())

			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(decodeError(w).Code).To(Equal(dto.CodeTimelineExists))
		})

		It("returns 500 without leaking unexpected errors", func() {
			svc.generateFn = func(_ context.Context, _ service.GenerateTimelineParams) (*model.WBS, error) {
				return nil, errors.New("pq: connection refused")
			}

			w := doJSON(router, http.MethodPost, "/projects/p1/timeline", generateBody())

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			resp := decodeError(w)
			Expect(resp.Code).To(Equal(dto.CodeInternal))
			Expect(resp.Error).To(Equal("failed to generate timeline"))
		})
	})

	Describe("Get", func() {
		It("returns 404 for an unknown project", func() {
			svc.getFn = func(_ context.Context, projectID string) (*model.WBS, error) {
				return nil, fmt.Errorf("%w: %s", model.ErrTimelineNotFound, projectID)
			}

			w := doJSON(router, http.MethodGet, "/projects/nope/timeline", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(w).Code).To(Equal(dto.CodeTimelineNotFound))
		})

		It("returns the live timeline", func() {
			svc.getFn = func(_ context.Context, projectID string) (*model.WBS, error) {
				return &model.WBS{ProjectID: projectID, Version: 3}, nil
			}

			w := doJSON(router, http.MethodGet, "/projects/p1/timeline", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp model.WBS
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Version).To(Equal(int64(3)))
		})
	})

	It("returns stats", func() {
		svc.statsFn = func(_ context.Context, projectID string) (*model.TimelineStats, error) {
			return &model.TimelineStats{ProjectID: projectID, TotalTasks: 4, ActiveTriggers: 1}, nil
		}

		w := doJSON(router, http.MethodGet, "/projects/p1/timeline/stats", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp model.TimelineStats
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.TotalTasks).To(Equal(4))
		Expect(resp.ActiveTriggers).To(Equal(1))
	})

	It("lists active triggers", func() {
		svc.triggersFn = func(_ context.Context, projectID string) ([]model.Trigger, error) {
			return []model.Trigger{{ID: 7, ProjectID: projectID, Status: model.TriggerStatusProposed}}, nil
		}

		w := doJSON(router, http.MethodGet, "/projects/p1/triggers", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp dto.TriggerListResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.ProjectID).To(Equal("p1"))
		Expect(resp.Triggers).To(HaveLen(1))
		Expect(resp.Triggers[0].ID).To(Equal(int64(7)))
	})

	It("summarises the re-plan history", func() {
		applied := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
		svc.historyFn = func(_ context.Context, _ string) ([]model.Proposal, error) {
			return []model.Proposal{{
				ID:          11,
				TriggerID:   7,
				BaseVersion: 1,
				Status:      model.ProposalStatusApplied,
				Impact: model.ProposalImpact{
					TotalDelayDays:   10,
					OriginalDuration: 10,
					ProposedDuration: 20,
					RiskAssessment:   model.RiskAssessment{Level: model.SeverityMedium},
				},
				Changes:   model.ProposalChanges{ShiftedTasks: []model.TaskShift{{TaskID: "B"}, {TaskID: "C"}}},
				AppliedAt: &applied,
			}}, nil
		}

		w := doJSON(router, http.MethodGet, "/projects/p1/history", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp dto.RePlanHistoryResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Proposals).To(HaveLen(1))
		Expect(resp.Proposals[0].ShiftedTasks).To(Equal(2))
		Expect(resp.Proposals[0].ProposedDuration).To(Equal(20))
		Expect(resp.Proposals[0].RiskLevel).To(Equal(model.SeverityMedium))
	})
})
