package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Readiness reports whether the predicate corpus is loaded.
type Readiness interface {
	Populated() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	readiness Readiness
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(r Readiness) *HealthHandler {
	return &HealthHandler{readiness: r}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessCheck handles GET /ready. The service is ready once the predicate
// corpus has been populated.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.readiness == nil || !h.readiness.Populated() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "predicate corpus not populated",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
