package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/config"
	"github.com/innoval-tech/puntual-api/internal/crud"
	"github.com/innoval-tech/puntual-api/internal/middleware"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine  *gin.Engine
	db      *gorm.DB
	logger  *logger.Logger
	cfg     *config.Config
	limiter *middleware.RateLimiter
	modules []Module
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// setupDatabase is replaced in tests.
var setupDatabase = config.SetupDatabase

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging and the database, builds the registered modules,
// migrates their tables when enabled, installs the middleware chain and
// registers all routes.
func New(cfg *config.Config) (*App, error) {
	return newWithRegistry(cfg, Registry)
}

func newWithRegistry(cfg *config.Config, registry []Descriptor) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	db, err := setupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		closeDB(db, log.Logger)
	}()

	ctx := context.Background()
	modules := BuildModules(ctx, registry, db, log.Logger, crud.Options{FullCRUD: cfg.Server.FullCRUD})

	if cfg.Database.AutoMigrate {
		if err := MigrateModules(ctx, modules); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed", slog.Int("modules", len(modules)))
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	var metrics *middleware.Metrics
	if cfg.Server.Metrics.Enabled {
		metrics = middleware.NewMetrics()
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(ctx, cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}
	defer func() {
		if !success && limiter != nil {
			limiter.Stop()
		}
	}()

	timeout, err := parseOptionalDuration(cfg.Server.Timeout)
	if err != nil {
		return nil, fmt.Errorf("server.timeout: %w", err)
	}

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestID(),
		middleware.ClientIP(log.Logger),
		middleware.LoggerWithConfig(log.Logger, middleware.LoggerConfig{
			SkipPaths: []string{"/health", cfg.Server.Metrics.Path},
		}),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(middleware.CORS(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)))
	if limiter != nil {
		engine.Use(middleware.RateLimit(limiter, metrics))
	}
	engine.Use(middleware.Timeout(timeout))

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:     modules,
		DB:          db,
		Logger:      log.Logger,
		APIBase:     cfg.Server.APIBase(),
		APIURL:      cfg.Server.APIURL(),
		Metrics:     metrics,
		MetricsPath: cfg.Server.Metrics.Path,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	if len(modules) < len(registry) {
		log.Warn("some modules were not mounted",
			slog.Int("registered", len(registry)),
			slog.Int("mounted", len(modules)),
		)
	}

	success = true
	return &App{
		engine:  engine,
		db:      db,
		logger:  log,
		cfg:     cfg,
		limiter: limiter,
		modules: modules,
	}, nil
}

// Handler returns the configured gin engine.
func (a *App) Handler() http.Handler {
	return a.engine
}

// resolveCORSConfig starts from the per-mode defaults and applies any
// configured overrides.
func resolveCORSConfig(mode string, configured config.CORSConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig(mode)

	if len(configured.AllowOrigins) > 0 {
		cors.AllowOrigins = configured.AllowOrigins
	}
	if len(configured.AllowMethods) > 0 {
		cors.AllowMethods = configured.AllowMethods
	}
	if len(configured.AllowHeaders) > 0 {
		cors.AllowHeaders = configured.AllowHeaders
	}
	cors.AllowCredentials = configured.AllowCredentials
	if configured.MaxAge != "" {
		if d, err := time.ParseDuration(configured.MaxAge); err == nil {
			cors.MaxAge = strconv.Itoa(int(d.Seconds()))
		}
	}
	return cors
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func closeDB(db *gorm.DB, log *slog.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
		return
	}
	log.Info("database connection closed")
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM. It shuts the
// server down with a 5-second deadline, then releases the rate limiter, the
// database and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := a.cfg.Server.Addr()
	srv := newHTTPServer(addr, a.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			slog.String("addr", addr),
			slog.String("api_url", a.cfg.Server.APIURL()),
			slog.Bool("full_crud", a.cfg.Server.FullCRUD),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}
	closeDB(a.db, log)

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
