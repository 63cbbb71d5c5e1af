package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoiceflow/internal/action"
)

// ActionHandler exposes the action dispatcher over HTTP.
type ActionHandler struct {
	dispatcher *action.Dispatcher
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(dispatcher *action.Dispatcher) *ActionHandler {
	return &ActionHandler{dispatcher: dispatcher}
}

// Invoke handles POST /api/v1/actions
// @Summary Invoke an action
// @Description Run one capability function. Function-level failures are reported inside data.result.
// @Tags actions
// @Accept json
// @Produce json
// @Param request body action.Request true "Action invocation"
// @Success 200 {object} Response{data=action.Response} "Action response"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /actions [post]
func (h *ActionHandler) Invoke(c *gin.Context) {
	var req action.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON action request")
		return
	}
	if strings.TrimSpace(req.CapabilityGroup) == "" || strings.TrimSpace(req.Function) == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "capability_group and function are required")
		return
	}

	RespondOK(c, h.dispatcher.Invoke(c.Request.Context(), req))
}

// List handles GET /api/v1/actions
// @Summary List registered actions
// @Tags actions
// @Produce json
// @Success 200 {object} Response{data=[]string} "group/function keys"
// @Security BearerAuth
// @Router /actions [get]
func (h *ActionHandler) List(c *gin.Context) {
	RespondOK(c, h.dispatcher.Functions())
}
