// Package health exposes the Kubernetes-style liveness and readiness
// probes.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
)

// Prober reports whether the trivia provider can take traffic. The circuit
// breaker is the signal: an open breaker means the upstream is down and
// fresh questions come from the fallback bank only.
type Prober interface {
	Ready() bool
}

// RoomCounter is the slice of the registry the probes need.
type RoomCounter interface {
	Len() int
}

// Handler manages health check endpoints.
type Handler struct {
	provider Prober
	rooms    RoomCounter
}

// NewHandler creates a new health check handler.
func NewHandler(provider Prober, rooms RoomCounter) *Handler {
	return &Handler{
		provider: provider,
		rooms:    rooms,
	}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Rooms     int               `json:"rooms"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint.
// GET /health/live
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint.
// GET /health/ready
// Returns 200 when the room registry answers and the trivia breaker is not
// open; 503 otherwise. An open breaker still lets running games continue on
// the fallback bank, but new traffic is better routed elsewhere.
func (h *Handler) Readiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	checks["trivia"] = h.checkProvider(c)
	if checks["trivia"] != "healthy" {
		allHealthy = false
	}

	rooms := 0
	if h.rooms == nil {
		checks["registry"] = "unhealthy"
		allHealthy = false
	} else {
		rooms = h.rooms.Len()
		checks["registry"] = "healthy"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Rooms:     rooms,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

func (h *Handler) checkProvider(c *gin.Context) string {
	if h.provider == nil {
		return "unhealthy"
	}
	if !h.provider.Ready() {
		logging.Warn(c.Request.Context(), "Trivia provider circuit is open")
		return "unhealthy"
	}
	return "healthy"
}
