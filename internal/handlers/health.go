package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"college-predictor/internal/services/store"
)

// HealthChecker reports backend connectivity. *database.DB implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusProvider reports the record store's load state.
type StatusProvider interface {
	Status() []store.ExamStatus
}

// HealthHandler handles health check and status requests.
type HealthHandler struct {
	db     HealthChecker
	status StatusProvider
}

// NewHealthHandler creates a new health handler. db may be nil when the prediction log
// is disabled.
func NewHealthHandler(db HealthChecker, status StatusProvider) *HealthHandler {
	return &HealthHandler{db: db, status: status}
}

// HealthResponse is the response structure for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Stage     string `json:"stage"`
	Database  string `json:"database,omitempty"`
	Exams     int    `json:"exams"`
	Records   int    `json:"records"`
}

// StatusResponse lists the load state of every exam.
type StatusResponse struct {
	Exams []store.ExamStatus `json:"exams"`
}

// Check builds the health report. The service is degraded when the prediction log is
// configured but unreachable, or when no exam has any records loaded.
func (h *HealthHandler) Check(ctx context.Context) (int, HealthResponse) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "college-predictor",
		Version:   getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
		Stage:     getEnvOrDefault("STAGE", "unknown"),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			response.Database = "disconnected"
			response.Status = "degraded"
		} else {
			response.Database = "connected"
		}
	} else {
		response.Database = "not configured"
	}

	if h.status != nil {
		for _, st := range h.status.Status() {
			response.Exams++
			response.Records += st.Records
		}
		if response.Exams > 0 && response.Records == 0 {
			response.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if response.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return statusCode, response
}

// Status returns the per-exam load state.
func (h *HealthHandler) Status() StatusResponse {
	if h.status == nil {
		return StatusResponse{Exams: []store.ExamStatus{}}
	}
	return StatusResponse{Exams: h.status.Status()}
}

// Handle processes health check requests.
func (h *HealthHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	statusCode, response := h.Check(ctx)
	return apiResponse(statusCode, Response{Success: statusCode == http.StatusOK, Data: response}), nil
}

// HandleStatus processes store status requests.
func (h *HealthHandler) HandleStatus(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return apiResponse(http.StatusOK, Response{Success: true, Data: h.Status()}), nil
}

// getEnvOrDefault returns environment variable or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
