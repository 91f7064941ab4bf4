// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and edge rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip
//  7. Metrics
//  8. Edge rate limiter (per client IP)
//  9. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-alert-relay/internal/bot"
	"github.com/tbourn/go-alert-relay/internal/config"
	"github.com/tbourn/go-alert-relay/internal/domain"
	"github.com/tbourn/go-alert-relay/internal/eth"
	"github.com/tbourn/go-alert-relay/internal/http/handlers"
	"github.com/tbourn/go-alert-relay/internal/http/middleware"
	"github.com/tbourn/go-alert-relay/internal/ratelimit"
	"github.com/tbourn/go-alert-relay/internal/repo"
	"github.com/tbourn/go-alert-relay/internal/services"
)

// registrationRepoShim adapts the repository free functions to the
// services.RegistrationRepo interface expected by RegistrationService. This
// keeps services decoupled from the concrete repo package while reusing the
// existing functions.
type registrationRepoShim struct{}

// SaveRegistration proxies repo.SaveRegistration.
func (registrationRepoShim) SaveRegistration(ctx context.Context, db *gorm.DB, ens *string, address string, chatID int64) (*domain.Registration, error) {
	return repo.SaveRegistration(ctx, db, ens, address, chatID)
}

// GetRegistration proxies repo.GetRegistration.
func (registrationRepoShim) GetRegistration(ctx context.Context, db *gorm.DB, address string) (*domain.Registration, error) {
	return repo.GetRegistration(ctx, db, address)
}

// FindRegistrationByChat proxies repo.FindRegistrationByChat.
func (registrationRepoShim) FindRegistrationByChat(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Registration, error) {
	return repo.FindRegistrationByChat(ctx, db, chatID)
}

// DeleteRegistration proxies repo.DeleteRegistration.
func (registrationRepoShim) DeleteRegistration(ctx context.Context, db *gorm.DB, address string) error {
	return repo.DeleteRegistration(ctx, db, address)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, builds the service graph, and returns the bot dispatcher so the
// caller can also feed it from the polling transport.
//
// tg may be nil (tests, or bootstrap before Telegram auth): alert delivery
// then fails with a 500 and chat replies are dropped, but the HTTP surface
// stays up.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, resolver eth.Resolver, tg *bot.Client, cfg config.Config) *bot.Dispatcher {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB is generous for alert payloads)
	r.Use(limitBody(64 << 10))

	// 6) Compress responses for clients that ask
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Edge token-bucket limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	// 9) CORS posture (allow all when none configured: the alert endpoint is
	// called by node tooling, not browsers)
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/resolver/transport
	regSvc := services.NewRegistrationService(db, registrationRepoShim{}, resolver)
	dispatcher := bot.NewDispatcher(bot.NewStateStore(), regSvc)

	var sender bot.Sender
	if tg != nil {
		sender = tg
	}
	gateway := bot.NewGateway(sender, cfg.Telegram.SendTimeout)

	limiter := ratelimit.NewWindow(cfg.Alert.RateMax, cfg.Alert.RateWindow)
	alertSvc := services.NewAlertService(regSvc, limiter, gateway,
		cfg.Alert.MaxMessageLen, cfg.Alert.MaxAlertTypeLen)

	h := handlers.New(alertSvc, cfg.Alert.RateMax, cfg.Alert.RateWindow, handlers.WebhookDeps{
		Client:     tg,
		Dispatcher: dispatcher,
		Secret:     cfg.Telegram.WebhookSecret,
	})

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api"
	{
		api.POST("/alert", h.PostAlert)
	}

	// Telegram webhook intake (mounted only in webhook mode)
	if cfg.Telegram.Mode == "webhook" {
		r.POST("/webhook/:secret", h.Webhook)
	}

	// API docs (behind a flag; requires generated swagger docs at build time)
	if cfg.SwaggerEnabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return dispatcher
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
