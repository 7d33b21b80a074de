// Package server wires the orchestrator behind an HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/orchestrator"
	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/server/dto"
	"github.com/soundprediction/vectorgate/pkg/server/handlers"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	reg    *registry.Registry
	orch   *orchestrator.Orchestrator
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, reg *registry.Registry, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		config: cfg,
		reg:    reg,
		orch:   orch,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.reg)
	embedHandler := handlers.NewEmbedHandler(s.orch)
	modelsHandler := handlers.NewModelsHandler(s.reg)

	// Probe endpoints are never gated by authorization
	s.router.GET("/", healthHandler.Root)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/live", healthHandler.LivenessCheck)      // Kubernetes liveness probe
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	// Embedding and capability endpoints share the authorization policy
	auth := s.router.Group("/", authMiddleware(s.config.Auth.APIKey))
	{
		auth.POST("/embed", embedHandler.Embed)
		auth.GET("/models/info", modelsHandler.ModelsInfo)

		// Legacy routes for compatibility with the Python services
		auth.POST("/sparse/bm25", embedHandler.SparseBM25)
		auth.POST("/dense/embed", embedHandler.DenseEmbed)
		auth.POST("/hybrid/embed", embedHandler.HybridEmbed)
	}
}

// Start starts the server
func (s *Server) Start() error {
	fmt.Printf("Starting server on %s\n", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println("Stopping server...")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured handler, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware tags each request with an ID and its entry point
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")
		c.Header("X-Request-ID", requestID)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authMiddleware enforces the optional shared-secret policy. An empty
// apiKey disables the check entirely; otherwise the caller must present a
// matching bearer credential before any orchestration work runs.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   dto.CodeAuthorizationFailed,
				Message: "missing or invalid bearer credential",
				Code:    http.StatusUnauthorized,
			})
			return
		}

		c.Next()
	}
}
