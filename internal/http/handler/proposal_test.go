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
)

var _ = Describe("ProposalHandler", func() {
	var (
		router *gin.Engine
		svc    *mockLifecycleService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockLifecycleService{}
		h := handler.NewProposalHandler(svc)
		router.GET("/proposals/:proposalID", h.Get)
		router.POST("/proposals/:proposalID/approve", h.Approve)
		router.POST("/proposals/:proposalID/reject", h.Reject)
		router.POST("/proposals/:proposalID/apply", h.Apply)
	})

	It("returns 404 for an unknown proposal", func() {
		svc.getFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
			return nil, &model.EngineError{Kind: model.ErrProposalNotFound, ProposalID: proposalID}
		}

		w := doJSON(router, http.MethodGet, "/proposals/5", nil)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		resp := decodeError(w)
		Expect(resp.Code).To(Equal(dto.CodeProposalNotFound))
		Expect(resp.ProposalID).To(Equal(int64(5)))
	})

	Describe("Approve", func() {
		It("passes the approver through", func() {
			var approver string
			svc.approveFn = func(_ context.Context, proposalID int64, who string) (*model.Proposal, error) {
				approver = who
				return &model.Proposal{ID: proposalID, Status: model.ProposalStatusApproved}, nil
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/approve", map[string]string{"approver": "pm@urbanova.test"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(approver).To(Equal("pm@urbanova.test"))
			var resp model.Proposal
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(model.ProposalStatusApproved))
		})

		It("returns 400 without an approver", func() {
			w := doJSON(router, http.MethodPost, "/proposals/5/approve", map[string]string{})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 409 proposal_expired after the deadline", func() {
			svc.approveFn = func(_ context.Context, proposalID int64, _ string) (*model.Proposal, error) {
				return nil, &model.EngineError{Kind: model.ErrProposalExpired, ProposalID: proposalID}
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/approve", map[string]string{"approver": "pm@urbanova.test"})

			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(decodeError(w).Code).To(Equal(dto.CodeProposalExpired))
		})
	})

	Describe("Apply", func() {
		It("returns 409 stale_base_version when the live timeline moved", func() {
			svc.applyFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return nil, &model.EngineError{Kind: model.ErrStaleBaseVersion, ProposalID: proposalID, TriggerID: 4}
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/apply", nil)

			Expect(w.Code).To(Equal(http.StatusConflict))
			resp := decodeError(w)
			Expect(resp.Code).To(Equal(dto.CodeStaleBaseVersion))
			Expect(resp.ProposalID).To(Equal(int64(5)))
			Expect(resp.TriggerID).To(Equal(int64(4)))
		})

		It("returns 409 invalid_transition for an unapproved proposal", func() {
			svc.applyFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return nil, &model.EngineError{Kind: model.ErrInvalidTransition, ProposalID: proposalID}
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/apply", nil)

			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(decodeError(w).Code).To(Equal(dto.CodeInvalidState))
		})

		It("returns the applied proposal", func() {
			svc.applyFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return &model.Proposal{ID: proposalID, Status: model.ProposalStatusApplied}, nil
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/apply", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Reject", func() {
		It("passes the reason through", func() {
			var reason string
			svc.rejectFn = func(_ context.Context, proposalID int64, why string) (*model.Proposal, error) {
				reason = why
				return &model.Proposal{ID: proposalID, Status: model.ProposalStatusRejected}, nil
			}

			w := doJSON(router, http.MethodPost, "/proposals/5/reject", map[string]string{"reason": "client accepted the delay"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(reason).To(Equal("client accepted the delay"))
		})

		It("returns 400 without a reason", func() {
			w := doJSON(router, http.MethodPost, "/proposals/5/reject", `{}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
