package router

import (
	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/handler"
)

func FactRouter(rg *gin.RouterGroup, h *handler.ReplanHandler) {
	rg.POST("", h.IngestFact)
}
