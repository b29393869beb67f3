// Package server exposes a Tracker over HTTP: host adapters post events,
// popups read the visible tree and toggle collapse state, and Prometheus
// scrapes /metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabtree/internal/logging"
	"github.com/mesh-intelligence/tabtree/internal/monitoring"
	"github.com/mesh-intelligence/tabtree/internal/tracker"
)

// Config holds HTTP server settings.
type Config struct {
	Addr        string
	Development bool

	// AllowOrigins lists the origins allowed to call the API from a
	// browser, e.g. "chrome-extension://<id>". Empty allows any origin.
	AllowOrigins []string

	ShutdownTimeout time.Duration
}

// DefaultConfig listens on localhost only.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:7420",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server wraps the gin router and its dependencies.
type Server struct {
	router  *gin.Engine
	tracker *tracker.Tracker
	logger  *zap.Logger
	config  Config
}

// New builds the router. Metrics are recorded on m and served from
// gatherer; either may be nil.
func New(t *tracker.Tracker, m *monitoring.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger, cfg Config) *Server {
	logger = logging.OrNop(logger)
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if m != nil {
		router.Use(monitoring.Middleware(m))
	}
	router.Use(corsMiddleware(cfg.AllowOrigins))

	s := &Server{
		router:  router,
		tracker: t,
		logger:  logger,
		config:  cfg,
	}
	h := &handlers{tracker: t, logger: logger}

	router.GET("/healthz", h.health)
	router.GET("/windows", h.listWindows)
	router.GET("/windows/:windowID", h.getWindow)
	router.GET("/windows/:windowID/tree", h.getTree)
	router.PATCH("/windows/:windowID/tabs/:tabID", h.updateTab)
	router.DELETE("/windows/:windowID/tabs/:tabID", h.removeTab)
	router.POST("/events", h.postEvent)
	router.POST("/seed", h.seed)
	router.GET("/snapshot", h.snapshot)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowBrowserExtensions = true
	}
	return cors.New(cfg)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
