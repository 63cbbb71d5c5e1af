package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoiceflow/internal/service"
)

// PipelineHandler handles end-to-end pipeline runs.
type PipelineHandler struct {
	pipelineService service.PipelineService
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(pipelineService service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipelineService: pipelineService}
}

// Run handles POST /api/v1/pipeline/runs
// @Summary Run the invoice pipeline
// @Description Extract, validate and score a stored document, then fan out to the requested evaluators.
// @Description Evaluator failures are reported inside the aggregate; only extraction failures fail the run.
// @Tags pipeline
// @Accept json
// @Produce json
// @Param request body RunPipelineRequest true "Pipeline run"
// @Success 200 {object} Response{data=domain.PipelineResult} "Pipeline result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 429 {object} ErrorResponseBody "Extraction provider rate limited"
// @Failure 502 {object} ErrorResponseBody "Extraction failed"
// @Security BearerAuth
// @Router /pipeline/runs [post]
func (h *PipelineHandler) Run(c *gin.Context) {
	var req RunPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "source_reference is required")
		return
	}

	result, err := h.pipelineService.Run(c.Request.Context(), &service.ProcessInput{
		SourceReference: req.SourceReference,
		ContentType:     req.ContentType,
		SizeBytes:       req.SizeBytes,
		Evaluators:      req.Evaluators,
		CorrelationID:   req.CorrelationID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
