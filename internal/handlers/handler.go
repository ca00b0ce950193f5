package handlers

import (
	"net/http"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options are the optional parts of the HTTP surface.
type Options struct {
	// AuthEnabled puts the command endpoint behind operator bearer tokens.
	AuthEnabled bool
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
	// CommandLimiter throttles the command endpoint. Nil means unlimited.
	CommandLimiter *rate.Limiter
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	if h.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.opts.Metrics))
	}

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/data", h.getData)
		api.GET("/history", h.getHistory)
		api.GET("/ws", h.wsConnect)
		h.registerCommandRoutes(api)
	}
}

func (h *Handler) registerCommandRoutes(api *gin.RouterGroup) {
	chain := []gin.HandlerFunc{h.commandRateLimit}
	if h.opts.AuthEnabled {
		chain = append(chain, h.requireOperator)
	}
	cmd := api.Group("/command", chain...)
	{
		// ?type=open-door|close-door|open-canopy|close-canopy
		cmd.GET("", h.sendCommand)
		cmd.POST("", h.sendCommand)
	}
}
