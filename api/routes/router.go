// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"cineseat/internal/analytics"
	"cineseat/internal/carts"
	"cineseat/internal/checkout"
	"cineseat/internal/pricing"
	"cineseat/internal/reconcile"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/database"
	"cineseat/internal/shared/middleware"
	"cineseat/internal/tickets"
	"cineseat/pkg/cache"
	"cineseat/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Services is the wired application graph. The server starts its background jobs and
// consumers from it.
type Services struct {
	Seats     seats.Service
	Sessions  sessions.Service
	Pricing   pricing.Service
	Checkout  checkout.Service
	Analytics analytics.Service
	Engine    *reconcile.Engine
	Scheduler *reconcile.Scheduler
}

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	db          *database.DB
	rateLimiter *ratelimit.RateLimiter
	services    *Services
}

// NewRouter wires repositories and services. publisher may be nil.
func NewRouter(cfg *config.Config, db *database.DB, publisher seats.EventPublisher, rateLimiter *ratelimit.RateLimiter) *Router {
	return &Router{
		config:      cfg,
		db:          db,
		rateLimiter: rateLimiter,
		services:    BuildServices(cfg, db, publisher),
	}
}

// BuildServices constructs every service over the primary database.
func BuildServices(cfg *config.Config, db *database.DB, publisher seats.EventPublisher) *Services {
	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis)
	}

	seatRepo := seats.NewRepository(db.Primary)
	cartRepo := carts.NewRepository(db.Primary)
	sessionRepo := sessions.NewRepository(db.Primary)

	seatService := seats.NewService(seatRepo, publisher, cfg)
	cartService := carts.NewService(cartRepo, cfg)
	pricingService := pricing.NewService(pricing.NewRepository(db.Primary), cacheService, cfg)

	engine := reconcile.NewEngine(reconcile.NewStore(db.Primary), pricingService, cfg)
	sessionService := sessions.NewService(sessionRepo)
	sessionService.SetMaterializer(engine)

	svc := &Services{
		Seats:     seatService,
		Sessions:  sessionService,
		Pricing:   pricingService,
		Checkout:  checkout.NewService(db.Primary, cartService, cartRepo, seatService, seatRepo, tickets.NewRepository(db.Primary), sessionRepo, pricingService),
		Analytics: analytics.NewService(analytics.NewRepository(db.Primary), sessionRepo, cacheService),
		Engine:    engine,
	}
	if cfg.Reconcile.Interval > 0 {
		svc.Scheduler = reconcile.NewScheduler(engine, cfg.Reconcile.Interval)
	}
	return svc
}

func (r *Router) Services() *Services {
	return r.services
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	adminAuth := []gin.HandlerFunc{middleware.JWTAuthWithConfig(r.config), middleware.RequireAdmin()}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		sessions.SetupSessionRoutes(api, sessions.NewController(r.services.Sessions), adminAuth...)
		seats.SetupSeatRoutes(api, seats.NewController(r.services.Seats), adminAuth...)
		r.setupCartRoutes(api)

		pricing.SetupPriceRuleRoutes(api, pricing.NewController(r.services.Pricing), adminAuth...)
		reconcile.SetupReconcileRoutes(api, reconcile.NewController(r.services.Engine), adminAuth...)
		analytics.SetupAnalyticsRoutes(api, analytics.NewController(r.services.Analytics), adminAuth...)
	}
}

// setupCartRoutes puts the stricter hold and checkout buckets in front of the
// endpoints that take seats.
func (r *Router) setupCartRoutes(rg *gin.RouterGroup) {
	var holdLimit, checkoutLimit gin.HandlerFunc
	if r.rateLimiter != nil && r.rateLimiter.Enabled() {
		holdLimit = ratelimit.For(r.rateLimiter, ratelimit.RateLimitTypeHold)
		checkoutLimit = ratelimit.For(r.rateLimiter, ratelimit.RateLimitTypeCheckout)
	}
	checkout.SetupCartRoutes(rg, checkout.NewController(r.services.Checkout), holdLimit, checkoutLimit)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cineseat",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cineseat",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":       "operational",
			"api_version":  r.config.APIVersion,
			"database":     r.db.Driver,
			"redis":        r.db.Redis != nil,
			"tx_supported": r.config.Reconcile.TxSupported,
			"timestamp":    time.Now(),
		}
		if r.services.Scheduler != nil {
			status["reconcile"] = r.services.Scheduler.Status()
		}
		c.JSON(http.StatusOK, status)
	})
}
