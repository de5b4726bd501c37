package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/conf"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/research/service"
)

// HealthCheck probes one backend
type HealthCheck func(ctx context.Context) error

type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	logger *logger.Logger
}

// Services groups the HTTP handlers
type Services struct {
	Search   *service.SearchService
	Research *service.ResearchService
	Progress *service.ProgressService
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	services Services,
	gatherer prometheus.Gatherer,
	checks map[string]HealthCheck,
) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", "/metrics"},
	}))

	router.GET("/health", healthHandler(checks))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/search", services.Search.Search)
		api.POST("/extract", services.Search.Extract)
		api.GET("/extractors", services.Search.Extractors)

		providers := api.Group("/providers")
		providers.GET("", services.Search.Providers)
		providers.POST("/reset", services.Search.ResetAll)
		providers.POST("/:id/reset", services.Search.ResetProvider)

		research := api.Group("/research")
		research.POST("", services.Research.Collect)
		research.GET("", services.Research.List)
		research.GET("/:id", services.Research.Get)
		if services.Progress != nil {
			research.GET("/:id/events", services.Progress.Events)
		}
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:         config.Server.Addr(),
			Handler:      router,
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
		},
		router: router,
		logger: log,
	}
}

// Handler exposes the router
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     overall,
			"time":       time.Now().Format(time.RFC3339),
			"components": components,
		})
	}
}
