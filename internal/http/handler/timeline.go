package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

type TimelineHandler struct {
	timelines service.TimelineService
}

func NewTimelineHandler(timelines service.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelines: timelines}
}

func (h *TimelineHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	wbs, err := h.timelines.GenerateTimeline(c.Request.Context(), service.GenerateTimelineParams{
		ProjectID:    c.Param("projectID"),
		StartDate:    req.StartDate,
		Tasks:        req.Tasks,
		Dependencies: req.Dependencies,
		SourceFacts:  req.SourceFacts,
		Policy:       req.Policy,
	})
	if err != nil {
		respondError(c, err, "failed to generate timeline")
		return
	}

	c.JSON(http.StatusCreated, wbs)
}

func (h *TimelineHandler) Get(c *gin.Context) {
	wbs, err := h.timelines.GetTimeline(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, err, "failed to get timeline")
		return
	}
	c.JSON(http.StatusOK, wbs)
}

func (h *TimelineHandler) Stats(c *gin.Context) {
	stats, err := h.timelines.GetTimelineStats(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		respondError(c, err, "failed to get timeline stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TimelineHandler) ActiveTriggers(c *gin.Context) {
	projectID := c.Param("projectID")
	triggers, err := h.timelines.GetActiveTriggers(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err, "failed to list triggers")
		return
	}
	c.JSON(http.StatusOK, dto.TriggerListResponse{ProjectID: projectID, Triggers: triggers})
}

func (h *TimelineHandler) History(c *gin.Context) {
	projectID := c.Param("projectID")
	proposals, err := h.timelines.GetRePlanHistory(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err, "failed to get re-plan history")
		return
	}
	c.JSON(http.StatusOK, dto.ToRePlanHistoryResponse(projectID, proposals))
}
