package router

import (
	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/handler"
	"github.com/EI94/Urbanova-sub017/internal/service"
)

type RouterConfig struct {
	TraceHeaderName string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		timelineHandler := handler.NewTimelineHandler(services.Timelines())
		replanHandler := handler.NewReplanHandler(services.Replan(), cfg.TraceHeaderName)
		ProjectRouter(v1.Group("/projects/:projectID"), timelineHandler, replanHandler)
		FactRouter(v1.Group("/facts"), replanHandler)

		proposalHandler := handler.NewProposalHandler(services.Lifecycle())
		ProposalRouter(v1.Group("/proposals/:proposalID"), proposalHandler, replanHandler)

		SchemaRouter(v1.Group("/schemas"), handler.NewSchemaHandler())
	}
}
