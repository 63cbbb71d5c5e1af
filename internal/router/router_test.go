package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/action"
	"invoiceflow/internal/config"
	"invoiceflow/internal/handler"
	"invoiceflow/internal/router"
	"invoiceflow/internal/service"
	"invoiceflow/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func handlers() router.Handlers {
	svc := new(mocks.MockPipelineService)
	return router.Handlers{
		Action:     handler.NewActionHandler(action.NewPipelineDispatcher(svc)),
		Document:   handler.NewDocumentHandler(new(mocks.MockUploadService)),
		Pipeline:   handler.NewPipelineHandler(svc),
		Extraction: handler.NewExtractionHandler(svc),
		Health:     handler.NewHealthHandler(nil),
	}
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetup_AuthRequiredWhenConfigured(t *testing.T) {
	tokens := service.NewTokenService(config.JWTConfig{Secret: "s3cret", Issuer: "invoiceflow"})
	r := router.Setup(tokens, handlers())

	assert.Equal(t, http.StatusOK, get(r, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/actions", "").Code)

	token, _, err := tokens.IssueToken("erp")
	require.NoError(t, err)
	w := get(r, "/api/v1/actions", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pipeline/process")
}

func TestSetup_OpenWithoutTokens(t *testing.T) {
	r := router.Setup(nil, handlers())

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/actions", "").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/extractions/not-a-uuid", "").Code)
	assert.NotEmpty(t, get(r, "/readyz", "").Header().Get("X-Request-ID"))
}
