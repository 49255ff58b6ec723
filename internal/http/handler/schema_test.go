package handler_test

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/EI94/Urbanova-sub017/internal/http/dto"
	"github.com/EI94/Urbanova-sub017/internal/http/handler"
)

var _ = Describe("SchemaHandler", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.GET("/schemas/:name", handler.NewSchemaHandler().Get)
	})

	It("publishes the fact-change schema", func() {
		w := doJSON(router, http.MethodGet, "/schemas/fact-change", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var schema map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &schema)).To(Succeed())
		Expect(schema["required"]).To(ContainElements("fact_id", "fact_type", "project_id"))
		Expect(schema["properties"]).To(HaveKey("reported_delay_days"))
	})

	It("publishes the replan-request schema", func() {
		w := doJSON(router, http.MethodGet, "/schemas/replan-request", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var schema map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &schema)).To(Succeed())
		Expect(schema["required"]).To(ContainElements("type", "cause", "affected_task_ids"))
	})

	It("returns 404 for an unknown schema", func() {
		w := doJSON(router, http.MethodGet, "/schemas/weather", nil)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(decodeError(w).Code).To(Equal(dto.CodeSchemaNotFound))
	})
})
