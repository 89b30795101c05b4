// Package api serves backtests over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dorjee9/algotrade-simple/config"
	"github.com/dorjee9/algotrade-simple/internal/gateway"
	"github.com/dorjee9/algotrade-simple/internal/logger"
	"github.com/dorjee9/algotrade-simple/internal/metrics"
	"github.com/dorjee9/algotrade-simple/internal/service"
	sqlitestore "github.com/dorjee9/algotrade-simple/internal/store/sqlite"
)

// RunLister reads stored run totals.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]sqlitestore.RunRecord, error)
}

// Deps are the collaborators of the API. Runs, Hub, Health and Gatherer are optional.
type Deps struct {
	Service  *service.Service
	Runs     RunLister
	Hub      *gateway.Hub
	Health   *metrics.HealthStatus
	Gatherer prometheus.Gatherer
	Defaults *config.Config
	Logger   zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	engine *gin.Engine
	server *http.Server
	deps   Deps
	log    zerolog.Logger
}

// NewServer creates the server and registers its routes.
func NewServer(addr string, d Deps) *Server {
	if d.Defaults == nil {
		d.Defaults = config.Default()
	}
	log := logger.Component(d.Logger, "api")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(loggerMiddleware(log))

	s := &Server{
		engine: engine,
		deps:   d,
		log:    log,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	h := &handler{deps: s.deps, log: s.log}

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/health", h.health)
		v1.GET("/backtest", h.backtest)
		v1.GET("/chart.svg", h.chart)
		v1.GET("/runs", h.runs)
		v1.GET("/stream", h.stream)
	}

	if s.deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func loggerMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("run_id", c.Writer.Header().Get(runIDHeader)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
