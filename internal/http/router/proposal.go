package router

import (
	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/handler"
)

func ProposalRouter(rg *gin.RouterGroup, proposals *handler.ProposalHandler, replan *handler.ReplanHandler) {
	rg.GET("", proposals.Get)
	rg.POST("/approve", proposals.Approve)
	rg.POST("/reject", proposals.Reject)
	rg.POST("/apply", proposals.Apply)
	rg.POST("/regenerate", replan.Regenerate)
}
