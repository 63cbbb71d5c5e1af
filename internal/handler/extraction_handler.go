package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoiceflow/internal/export"
	"invoiceflow/internal/service"
)

// ExtractionHandler serves persisted extraction records.
type ExtractionHandler struct {
	pipelineService service.PipelineService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(pipelineService service.PipelineService) *ExtractionHandler {
	return &ExtractionHandler{pipelineService: pipelineService}
}

// GetByID handles GET /api/v1/extractions/:id
// @Summary Get an extraction record
// @Tags extractions
// @Produce json
// @Param id path string true "Extraction record ID (UUID)"
// @Success 200 {object} Response{data=domain.ExtractionRecord} "Extraction record"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Extraction not found"
// @Security BearerAuth
// @Router /extractions/{id} [get]
func (h *ExtractionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return
	}

	rec, err := h.pipelineService.GetExtraction(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Export handles GET /api/v1/extractions/:id/export
// @Summary Export an extraction record
// @Description Download the extracted fields and line items as CSV or XLSX.
// @Tags extractions
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Extraction record ID (UUID)"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody "Invalid ID or format"
// @Failure 404 {object} ErrorResponseBody "Extraction not found"
// @Security BearerAuth
// @Router /extractions/{id}/export [get]
func (h *ExtractionHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", export.FormatCSV))
	if format != export.FormatCSV && format != export.FormatXLSX {
		RespondError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported export format; allowed: csv, xlsx")
		return
	}

	rec, err := h.pipelineService.GetExtraction(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, rec); err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.BuildFilename(rec, format)))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
