package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/api/handlers"
	"github.com/nexconsult/simples-batch/internal/api/middleware"
	"github.com/nexconsult/simples-batch/internal/config"
	"github.com/nexconsult/simples-batch/internal/jobs"
	"github.com/nexconsult/simples-batch/internal/models"
)

// Server represents the HTTP server
type Server struct {
	Router   *gin.Engine
	config   *config.Config
	logger   *logrus.Logger
	registry *jobs.Registry
	cache    handlers.CacheAdmin
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, registry *jobs.Registry, cache handlers.CacheAdmin) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		cache:    cache,
	}

	server.setupRouter()
	return server
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))

	rateLimiter := middleware.NewRateLimiter(s.config.Security.RateLimit)

	// Health check endpoints (no rate limiting)
	healthHandler := handlers.NewHealthHandler(s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	// API v1 routes
	v1 := s.Router.Group("/api/v1")
	v1.Use(rateLimiter.Middleware())
	{
		defaults := models.Request{
			Workers:         s.config.Engine.Workers,
			DelaySeconds:    s.config.Engine.DelaySeconds,
			ReprocessRounds: s.config.Engine.ReprocessRounds,
		}
		jobsHandler := handlers.NewJobsHandler(s.registry, defaults, s.logger)
		jobGroup := v1.Group("/jobs")
		{
			jobGroup.POST("", jobsHandler.Submit)
			jobGroup.GET("", jobsHandler.List)
			jobGroup.GET("/:id", jobsHandler.Get)
			jobGroup.DELETE("/:id", jobsHandler.Stop)
		}

		cacheHandler := handlers.NewCacheHandler(s.cache, s.logger)
		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", cacheHandler.GetStats)
			cacheGroup.DELETE("/clear", cacheHandler.Clear)
			cacheGroup.DELETE("/:cnpj", cacheHandler.Delete)
		}
	}

	// 404 handler
	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})
}
