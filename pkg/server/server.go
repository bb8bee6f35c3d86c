// Package server exposes the predicate mapping pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/server/handlers"
	"github.com/soundprediction/predmap/pkg/types"
)

// Server represents the HTTP server.
type Server struct {
	config    *config.Config
	router    *gin.Engine
	mapper    handlers.Mapper
	readiness handlers.Readiness
	server    *http.Server
}

// New creates a new server instance.
func New(cfg *config.Config, mapper handlers.Mapper, readiness handlers.Readiness) *Server {
	return &Server{
		config:    cfg,
		mapper:    mapper,
		readiness: readiness,
	}
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.readiness)
	queryHandler := handlers.NewQueryHandler(s.mapper)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	// Both forms accepted for compatibility with the Python server.
	s.router.POST("/query", queryHandler.Query)
	s.router.POST("/query/", queryHandler.Query)
}

// Router returns the configured router; Setup must be called first.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server.
func (s *Server) Start() error {
	fmt.Printf("Starting server on %s\n", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println("Stopping server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware tags each request with an id and source for telemetry.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
