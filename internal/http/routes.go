package http

import (
	"time"

	"confidential_casino/internal/http/handlers"
	"confidential_casino/internal/http/middleware"
	"confidential_casino/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimits are requests per window: API per client IP, wagers per player.
type RateLimits struct {
	API         int
	APIWindow   time.Duration
	Wager       int
	WagerWindow time.Duration
}

type RouteDeps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Hub           *ws.Hub
	Limits        RateLimits
	AllowedOrigin string
}

func RegisterRoutes(r *gin.Engine, d RouteDeps) {
	r.Use(middleware.RequestID(), middleware.Metrics())

	// Health checks and metrics (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(d.Limits.API, d.Limits.APIWindow))
	registerAPIRoutes(v1, d.Handler, d.Limits)

	// Session events
	r.GET("/ws", ws.HandleWS(d.Hub, d.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, limits RateLimits) {
	// Auth
	api.POST("/auth/challenge", h.AuthChallenge)
	api.POST("/auth", h.Login)

	api.GET("/games", h.Games)

	// Wager rate limiter middleware (per player, not per IP)
	wagerRL := middleware.WagerRateLimit(limits.Wager, limits.WagerWindow)

	wagers := api.Group("/wagers")
	wagers.Use(middleware.JWT())
	{
		wagers.POST("", wagerRL, h.CreateWager)
		wagers.GET("", h.ListWagers)
		wagers.GET("/:id", h.GetWager)
		wagers.POST("/:id/recheck", wagerRL, h.RecheckWager)
		wagers.POST("/:id/reveal/challenge", wagerRL, h.RevealChallenge)
		wagers.POST("/:id/reveal", wagerRL, h.Reveal)
		wagers.POST("/:id/claim", wagerRL, h.Claim)
		wagers.DELETE("/:id", h.AbandonWager)
	}

	api.GET("/audit", middleware.JWT(), h.AuditLogs)
}
