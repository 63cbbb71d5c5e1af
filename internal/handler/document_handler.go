package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoiceflow/internal/service"
)

// DocumentHandler accepts source document uploads.
type DocumentHandler struct {
	uploadService service.UploadService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(uploadService service.UploadService) *DocumentHandler {
	return &DocumentHandler{uploadService: uploadService}
}

// Upload handles POST /api/v1/documents
// @Summary Upload a source document
// @Description Store a PDF, JPG or PNG invoice and return its source reference and classification.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload (PDF, JPG, or PNG)"
// @Success 201 {object} Response{data=service.UploadResult} "Document stored"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.uploadService.Upload(c.Request.Context(), service.UploadInput{File: file, Header: header})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, res)
}
