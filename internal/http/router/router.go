// Package router assembles the gin engine from config, shared middleware and
// the registered domain modules.
package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"salesops_backend/internal/config"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New builds the gin engine, mounts shared middleware and registers modules.
func New(cfg *config.Config, log *logger.Logger, health HealthChecker, modules []apphttp.Module) *gin.Engine {
	if !strings.EqualFold(cfg.Env, "development") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, log)
	engine.Use(limiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMW := httpkit.JWTAuth(cfg.JWTSecret)

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(authMW)
	admin := v1.Group("/admin")
	admin.Use(authMW, httpkit.RequireRole("admin"))

	routerCtx := &apphttp.RouterContext{
		Engine:         engine,
		V1:             v1,
		Protected:      protected,
		Admin:          admin,
		AuthMiddleware: authMW,
	}

	for _, m := range modules {
		m.RegisterRoutes(routerCtx)
		log.Info("module routes registered", "module", m.Name())
	}

	return engine
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: !cfg.CORSAllowAll,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	return cors.New(corsCfg)
}
