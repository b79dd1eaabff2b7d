// Package api - Thin HTTP layer over the quoting service.
// The API is ONLY responsible for: input binding, service orchestration, output serialization.
// The API NEVER performs pricing math.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freight-rating/core/output"
	"freight-rating/core/quoting"
	"freight-rating/internal/metrics"
)

// Options configures a Server
type Options struct {
	// Version is reported by /health and /version
	Version string

	// Logger receives request and error logs. Nil discards them.
	Logger *zap.Logger

	// Metrics enables HTTP metrics and the /metrics endpoint when set
	Metrics *metrics.Metrics
}

// Server is the API server
type Server struct {
	router     *gin.Engine
	service    *quoting.Service
	formatters output.FormatterRegistry
	logger     *zap.Logger
	metrics    *metrics.Metrics
	version    string
}

// NewServer creates a new API server over service
func NewServer(service *quoting.Service, opts Options) *Server {
	registerValidators()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:     gin.New(),
		service:    service,
		formatters: output.NewRegistry(),
		logger:     logger,
		metrics:    opts.Metrics,
		version:    opts.Version,
	}

	s.router.Use(s.Recovery(), RequestID(), RequestLogger(logger))
	if s.metrics != nil {
		s.router.Use(Metrics(s.metrics))
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/version", s.handleVersion)
	if s.metrics != nil {
		handler := s.metrics.Handler()
		s.router.GET("/metrics", gin.WrapH(handler))
	}

	v1 := s.router.Group("/v1")
	{
		v1.POST("/quotes", s.handleQuote)
		v1.POST("/measurements/cbm", s.handleCBM)
		v1.POST("/measurements/chargeable-weight", s.handleChargeableWeight)

		v1.GET("/rules", s.handleListRules)
		v1.POST("/rules", s.handleAddRule)
		v1.GET("/rules/:id", s.handleGetRule)
		v1.PATCH("/rules/:id", s.handleUpdateRule)
		v1.POST("/rules/:id/deactivate", s.handleDeactivateRule)

		v1.GET("/zones", s.handleListZones)
		v1.GET("/modifiers", s.handleListModifiers)

		v1.POST("/ratecard/reload", s.handleReload)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorBody{
			Code:    "NOT_FOUND",
			Type:    "NOT_FOUND",
			Message: "route not found: " + c.Request.URL.Path,
		}})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
