package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/log"
	"github.com/vovakirdan/chatguard-server/internal/session"
	"github.com/vovakirdan/chatguard-server/internal/store"
)

// Components reports which optional capabilities are configured.
type Components struct {
	Toxicity bool
	Advisory bool
}

// Connections is the read side of the hub.
type Connections interface {
	Count() int
}

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Analyzer   session.Processor
	Sessions   *session.Orchestrator
	Hub        Connections
	Store      store.MessageStore
	Auth       *auth.Service
	Components Components
}

// NewServer builds an HTTP server with all routes. The websocket endpoint is
// mounted on the mux directly since gin's writer cannot be hijacked after
// the middleware chain has touched it.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	logger = log.OrNop(logger)

	mux := stdhttp.NewServeMux()
	mux.Handle("GET /ws/{username}", NewWSHandler(deps.Sessions, cfg, logger))
	mux.Handle("/", NewRouter(deps, cfg, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers the REST API and operational routes.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	logger = log.OrNop(logger)
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(cfg.CORSOrigins))
	router.Use(MetricsMiddleware())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(deps, cfg, logger)

	router.GET("/", api.Root)
	router.GET("/health", api.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", api.APIHealth)
		apiGroup.POST("/analyze", api.Analyze)
		apiGroup.GET("/messages", api.Messages)
		apiGroup.GET("/stats", api.Stats)
		apiGroup.POST("/moderator/login", api.ModeratorLogin)
		apiGroup.DELETE("/messages/:id", ModeratorAuth(deps.Auth, logger), api.DeleteMessage)
	}

	return router
}
