package router

import (
	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/handler"
)

func ProjectRouter(rg *gin.RouterGroup, timelines *handler.TimelineHandler, replan *handler.ReplanHandler) {
	rg.POST("/timeline", timelines.Generate)
	rg.GET("/timeline", timelines.Get)
	rg.GET("/timeline/stats", timelines.Stats)
	rg.GET("/triggers", timelines.ActiveTriggers)
	rg.GET("/history", timelines.History)
	rg.POST("/replan", replan.RequestRePlan)
}
