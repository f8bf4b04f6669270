package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/itemhub/internal/config"
	"github.com/simp-lee/itemhub/internal/middleware"
	"github.com/simp-lee/itemhub/internal/pkg"
)

const healthPingTimeout = time.Second

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	Logger  *slog.Logger
	// Auth guards the protected group.
	Auth      gin.HandlerFunc
	APIPrefix string
	App       config.AppConfig
	// MetricsPath and MetricsHandler are optional; both must be set to
	// expose the scrape endpoint.
	MetricsPath    string
	MetricsHandler http.Handler
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if deps.DB == nil {
		return errors.New("database is required")
	}
	if deps.Auth == nil {
		return errors.New("auth middleware is required")
	}

	// The raw probe shares its path with the envelope health check when the
	// API is served at the root.
	if deps.APIPrefix != "" {
		r.GET("/health", healthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil && deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	base := r.Group(deps.APIPrefix)
	base.GET("/health", apiHealthHandler(deps.DB, deps.App))

	api := base.Group("",
		middleware.Transaction(deps.DB, deps.Logger),
		middleware.ErrorHandler(deps.Logger),
	)
	protected := api.Group("", deps.Auth)

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, protected)
	}

	r.HandleMethodNotAllowed = true
	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	return nil
}

// pingDB reports whether the database answers within healthPingTimeout.
func pingDB(ctx context.Context, db *gorm.DB) bool {
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

// healthHandler is the bare load balancer probe.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, dbStatus, code := "ok", "ok", http.StatusOK
		if !pingDB(c.Request.Context(), db) {
			status, dbStatus, code = "degraded", "error", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

// apiHealthHandler reports storage reachability in the response envelope.
func apiHealthHandler(db *gorm.DB, info config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, dbStatus, code := "healthy", "ok", http.StatusOK
		if !pingDB(c.Request.Context(), db) {
			status, dbStatus, code = "degraded", "unreachable", http.StatusServiceUnavailable
		}
		pkg.Success(c, code, "Health check completed", gin.H{
			"status":      status,
			"environment": info.Environment,
			"version":     info.Version,
			"database":    dbStatus,
		})
	}
}
