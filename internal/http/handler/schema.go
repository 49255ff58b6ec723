package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/model"
)

type SchemaHandler struct{}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

func (h *SchemaHandler) Get(c *gin.Context) {
	name := c.Param("name")
	schema, ok := model.Schema(name)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: fmt.Sprintf("unknown schema %q, expected one of %v", name, model.SchemaNames()),
			Code:  dto.CodeSchemaNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, schema)
}
