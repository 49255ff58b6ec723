package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

type ReplanHandler struct {
	replan      service.ReplanService
	traceHeader string
}

func NewReplanHandler(replan service.ReplanService, traceHeader string) *ReplanHandler {
	return &ReplanHandler{
		replan:      replan,
		traceHeader: traceHeader,
	}
}

// IngestFact runs a fact-change event through detection synchronously. The
// stream worker is the asynchronous path for the same event.
func (h *ReplanHandler) IngestFact(c *gin.Context) {
	var change model.FactChange
	if err := c.ShouldBindJSON(&change); err != nil {
		if _, ok := model.AsEngineError(err); ok {
			respondError(c, err, "failed to decode fact")
			return
		}
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.traceHeader != "" {
		if traceID := c.GetHeader(h.traceHeader); traceID != "" {
			span := logger.StartSpanFromTraceID(ctx, traceID, "timeline.http.ingest_fact")
			defer span.End()
			ctx = span.Context()
		}
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{ProjectID: &change.ProjectID, FactID: &change.FactID})

	result, err := h.replan.IngestFact(ctx, change)
	if err != nil {
		respondError(c, err, "failed to ingest fact")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, toReplanResponse(result))
}

func (h *ReplanHandler) RequestRePlan(c *gin.Context) {
	var req dto.RePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.replan.RequestRePlan(c.Request.Context(), req.ToModel(c.Param("projectID")))
	if err != nil {
		respondError(c, err, "failed to request re-plan")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, toReplanResponse(result))
}

func (h *ReplanHandler) Regenerate(c *gin.Context) {
	proposalID, ok := proposalIDParam(c)
	if !ok {
		return
	}

	result, err := h.replan.RegenerateProposal(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err, "failed to regenerate proposal")
		return
	}
	c.JSON(http.StatusCreated, toReplanResponse(result))
}

func toReplanResponse(r *service.ReplanResult) dto.ReplanResponse {
	return dto.ReplanResponse{
		Trigger:   r.Trigger,
		Proposal:  r.Proposal,
		Duplicate: r.Duplicate,
	}
}
