package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/model"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// Order matters: ErrProposalExpired wraps ErrStaleBaseVersion.
var errorMappings = []errorMapping{
	{model.ErrValidation, http.StatusUnprocessableEntity, dto.CodeValidation},
	{model.ErrUnknownTask, http.StatusUnprocessableEntity, dto.CodeUnknownTask},
	{model.ErrCycleDetected, http.StatusUnprocessableEntity, dto.CodeCycleDetected},
	{model.ErrNotATraversableGraph, http.StatusUnprocessableEntity, dto.CodeNotTraversable},
	{model.ErrNoAffectedTasks, http.StatusUnprocessableEntity, dto.CodeNoAffectedTasks},
	{model.ErrUnknownFactType, http.StatusUnprocessableEntity, dto.CodeUnknownFactType},
	{model.ErrProposalExpired, http.StatusConflict, dto.CodeProposalExpired},
	{model.ErrStaleBaseVersion, http.StatusConflict, dto.CodeStaleBaseVersion},
	{model.ErrInvalidTransition, http.StatusConflict, dto.CodeInvalidState},
	{model.ErrTimelineExists, http.StatusConflict, dto.CodeTimelineExists},
	{model.ErrTimelineNotFound, http.StatusNotFound, dto.CodeTimelineNotFound},
	{model.ErrTriggerNotFound, http.StatusNotFound, dto.CodeTriggerNotFound},
	{model.ErrProposalNotFound, http.StatusNotFound, dto.CodeProposalNotFound},
}

// respondError writes the status and body for a service error. Errors
// outside the engine's taxonomy are logged and reported as failedMsg.
func respondError(c *gin.Context, err error, failedMsg string) {
	ctx := c.Request.Context()

	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		body := dto.ErrorResponse{Error: err.Error(), Code: m.code}
		if engineErr, ok := model.AsEngineError(err); ok {
			body.TaskID = engineErr.TaskID
			body.DependencyID = engineErr.DependencyID
			body.TriggerID = engineErr.TriggerID
			body.ProposalID = engineErr.ProposalID
			body.Field = engineErr.Field
		}
		slog.WarnContext(ctx, failedMsg, "error", err, "code", m.code)
		c.JSON(m.status, body)
		return
	}

	slog.ErrorContext(ctx, failedMsg, "error", err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: failedMsg, Code: dto.CodeInternal})
}

func respondBadRequest(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request", "error", err)
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: dto.CodeBadRequest})
}

func proposalIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("proposalID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid proposal id", Code: dto.CodeBadRequest, Field: "proposalID"})
		return 0, false
	}
	return id, true
}
