package router

import (
	"github.com/gin-gonic/gin"

	"invoiceflow/internal/handler"
	"invoiceflow/internal/middleware"
	"invoiceflow/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Action     *handler.ActionHandler
	Document   *handler.DocumentHandler
	Pipeline   *handler.PipelineHandler
	Extraction *handler.ExtractionHandler
	Health     *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware. A nil
// tokens service leaves /api/v1 unauthenticated.
func Setup(tokens service.TokenService, h Handlers, corsOrigins ...string) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins...))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")
	if tokens != nil {
		v1.Use(middleware.AuthMiddleware(tokens))
	}

	v1.GET("/actions", h.Action.List)
	v1.POST("/actions", h.Action.Invoke)

	v1.POST("/documents", h.Document.Upload)
	v1.POST("/pipeline/runs", h.Pipeline.Run)

	extractions := v1.Group("/extractions")
	extractions.GET("/:id", h.Extraction.GetByID)
	extractions.GET("/:id/export", h.Extraction.Export)

	return r
}
