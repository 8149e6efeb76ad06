package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/query"
)

// WindQuerier answers a validated wind request.
type WindQuerier interface {
	Wind(ctx context.Context, req query.Request) (query.Response, error)
}

// Server exposes /wind plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /wind, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, wind WindQuerier, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	r.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/wind", handleWind(wind, logger))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleWind serves GET /wind?bounds=latN,lngW,latS,lngE&forecastTime=&zoom=.
// A callback parameter wraps the payload as JSONP.
func handleWind(wind WindQuerier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := query.ParseRequest(c.Request.URL.Query())
		if err != nil {
			writeError(c, logger, err)
			return
		}

		resp, err := wind.Wind(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSONP(http.StatusOK, resp)
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("wind query failed", "error", err, "query", c.Request.URL.RawQuery)
	}
	c.JSONP(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger logs one line per request at debug level, warn for 5xx.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
