package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// RunPipelineRequest is the body of POST /pipeline/runs.
type RunPipelineRequest struct {
	SourceReference string   `json:"source_reference" binding:"required" example:"s3://invoices/2024/inv-0042.pdf"`
	ContentType     string   `json:"content_type" example:"application/pdf"`
	SizeBytes       int64    `json:"size_bytes" example:"182044"`
	Evaluators      []string `json:"evaluators" example:"compliance,validation"`
	CorrelationID   string   `json:"correlation_id" example:"run-2024-0042"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"database not reachable"`
}

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
