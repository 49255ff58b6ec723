package router

import (
	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/handler"
)

func SchemaRouter(rg *gin.RouterGroup, h *handler.SchemaHandler) {
	rg.GET("/:name", h.Get)
}
