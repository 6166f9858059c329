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

	"github.com/innoval-tech/puntual-api/internal/middleware"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	Logger  *slog.Logger
	// APIBase is the mount point of the API, e.g. "/api/v1".
	APIBase string
	// APIURL is advertised by the root endpoint.
	APIURL      string
	Metrics     *middleware.Metrics
	MetricsPath string
}

// RootResponse is the body of GET {APIBase}.
type RootResponse struct {
	Message string `json:"message"`
	APIURL  string `json:"apiUrl"`
}

// RegisterRoutes registers the health, metrics, root and module routes plus
// the JSON 404 fallback.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.GET("/health", healthHandler(deps.DB))

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group(deps.APIBase)
	api.GET("", rootHandler(deps.APIURL))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		path := m.Mount(r, deps.APIBase)
		logger.Info("module mounted", slog.String("module", m.Name()), slog.String("path", path))
	}

	r.NoRoute(noRouteHandler())

	return nil
}

func rootHandler(apiURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, RootResponse{Message: "API is running", APIURL: apiURL})
	}
}

// healthHandler pings the database with a one second budget.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus, status, code := "ok", "ok", http.StatusOK

		if err := pingDB(c.Request.Context(), db); err != nil {
			dbStatus, status, code = "error", "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.ErrorResponse{
			Message: "Route not found",
			Error:   fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path),
		})
	}
}
