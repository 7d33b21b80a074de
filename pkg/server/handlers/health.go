package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	reg *registry.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(reg *registry.Registry) *HealthHandler {
	return &HealthHandler{reg: reg}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vectorgate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "vectorgate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready. It reports per-kind backend
// availability from the registry without invoking any backend; availability
// is fixed at startup so a registry read is authoritative.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks := gin.H{}
	for _, kind := range []types.Kind{types.KindSparse, types.KindDense, types.KindMultiVector} {
		status := "unavailable"
		if h.reg.Available(kind) {
			status = "available"
		}
		checks[string(kind)] = status
	}

	response := gin.H{
		"service":   "vectorgate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"system": gin.H{
			"goroutines": runtime.NumGoroutine(),
			"go_version": GoVersion,
		},
	}

	// Sparse is the baseline capability; readiness requires it.
	if !h.reg.Available(types.KindSparse) {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response["status"] = "ready"
	c.JSON(http.StatusOK, response)
}

// Root handles GET / - advertises the service, its loaded capabilities and
// the endpoints those capabilities expose. Routes whose backing capability
// never loaded are left out of the listing.
func (h *HealthHandler) Root(c *gin.Context) {
	capabilities := []string{}
	for _, kind := range []types.Kind{types.KindSparse, types.KindDense, types.KindMultiVector} {
		if h.reg.Available(kind) {
			capabilities = append(capabilities, string(kind))
		}
	}

	endpoints := gin.H{
		"health":      "/health",
		"embed":       "/embed",
		"model_info":  "/models/info",
		"sparse_bm25": "/sparse/bm25",
	}
	if h.reg.Available(types.KindDense) {
		endpoints["dense_embeddings"] = "/dense/embed"
		endpoints["hybrid_embeddings"] = "/hybrid/embed"
	}

	c.JSON(http.StatusOK, gin.H{
		"service":      "vectorgate",
		"version":      Version,
		"capabilities": capabilities,
		"endpoints":    endpoints,
	})
}
