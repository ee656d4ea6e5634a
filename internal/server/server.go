// Package server exposes the gateway HTTP API: message sends, session
// control, and operational endpoints.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fleetdesk/notify/internal/auth"
	"github.com/fleetdesk/notify/internal/config"
	"github.com/fleetdesk/notify/internal/observability"
	"github.com/fleetdesk/notify/internal/session"
)

const version = "0.1.0"

type Server struct {
	cfg       config.ServerConfig
	client    *session.Client
	logger    zerolog.Logger
	router    *gin.Engine
	startedAt time.Time

	mu     sync.Mutex
	lastQR string
}

// New builds the router and subscribes to pairing challenges so operators
// can read QR codes from the gateway logs.
func New(cfg config.ServerConfig, client *session.Client, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.RequestMetrics())
	if len(cfg.CorsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		router:    router,
		startedAt: time.Now(),
	}

	client.SubscribeQR(func(code string) {
		s.mu.Lock()
		s.lastQR = code
		s.mu.Unlock()
		logger.Info().Str("code", code).Msg("pairing_qr")
	})
	client.SubscribeStatus(func(st session.State) {
		if st.Status == session.StatusReady {
			s.mu.Lock()
			s.lastQR = ""
			s.mu.Unlock()
		}
	})

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for serving and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.startedAt).String(),
			"component": "notify-gateway",
			"version":   version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		ready := s.client.IsConnected()
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.startedAt).String(),
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1", auth.Middleware(auth.StaticToken{Token: s.cfg.AuthToken}))
	v1.POST("/messages", s.postMessage)
	v1.POST("/messages/bulk", s.postBulkMessages)
	v1.GET("/session", s.getSession)
	v1.GET("/session/qr", s.getSessionQR)
	v1.POST("/session/connect", s.postConnect)
	v1.POST("/session/disconnect", s.postDisconnect)
	v1.GET("/queue", s.getQueue)
}
