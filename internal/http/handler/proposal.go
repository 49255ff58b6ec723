package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

type ProposalHandler struct {
	lifecycle service.LifecycleService
}

func NewProposalHandler(lifecycle service.LifecycleService) *ProposalHandler {
	return &ProposalHandler{lifecycle: lifecycle}
}

func (h *ProposalHandler) Get(c *gin.Context) {
	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	p, err := h.lifecycle.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err, "failed to get proposal")
		return
	}
	c.JSON(http.StatusOK, p)
}

// Approve records the approver. Auto-apply proposals are applied in the same call.
func (h *ProposalHandler) Approve(c *gin.Context) {
	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}
	var req dto.ApproveProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	p, err := h.lifecycle.Approve(c.Request.Context(), proposalID, req.Approver)
	if err != nil {
		respondError(c, err, "failed to approve proposal")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProposalHandler) Reject(c *gin.Context) {
	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}
	var req dto.RejectProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	p, err := h.lifecycle.Reject(c.Request.Context(), proposalID, req.Reason)
	if err != nil {
		respondError(c, err, "failed to reject proposal")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProposalHandler) Apply(c *gin.Context) {
	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	p, err := h.lifecycle.Apply(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err, "failed to apply proposal")
		return
	}
	c.JSON(http.StatusOK, p)
}
