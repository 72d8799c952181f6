package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/recircular-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Offer   *handler.OfferHandler
	Request *handler.RequestHandler
	Health  *handler.HealthHandler
}

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// HSTS enables Strict-Transport-Security; set when served over TLS.
	HSTS           bool
	// AuthLimiter throttles the register, confirm and login endpoints per client IP.
	AuthLimiter    *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, h Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.HSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	r.GET("/", h.Health.Root)
	r.GET("/health", h.Health.Live)
	r.GET("/health/ready", h.Health.Ready)

	api := r.Group("/api")

	auth := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		auth.Use(cfg.AuthLimiter.Handler())
	}
	auth.POST("/register", h.Auth.Register)
	auth.GET("/confirm/:token", h.Auth.Confirm)
	auth.POST("/login", h.Auth.Login)

	// Public offer routes
	offers := api.Group("/offers")
	offers.GET("", h.Offer.List)
	offers.GET("/nearby", optionalAuth, h.Offer.Nearby)

	// Protected offer routes
	offers.POST("", authMW, h.Offer.Create)
	offers.GET("/my", authMW, h.Offer.ListMine)
	offers.PATCH("/:id/cancel", authMW, h.Offer.Cancel)
	offers.POST("/:id/requests", authMW, h.Request.Create)
	offers.GET("/:id/requests", authMW, h.Request.ListForOffer)
	offers.POST("/:id/requests/:requestId/accept", authMW, h.Request.Accept)

	requests := api.Group("/requests", authMW)
	requests.GET("/my", h.Request.ListMine)
	requests.PATCH("/:id/cancel", h.Request.Cancel)

	r.NoRoute(handler.NotFound)

	return r
}
