package crud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// Config describes one module built from the generic template.
type Config[T Entity, D any] struct {
	// Name is the singular module name; routes mount under Name + "s".
	Name         string
	CreateSchema *pkg.Schema
	UpdateSchema *pkg.Schema
	ToDTO        func(*T) D
	// Relations are preloaded on every read.
	Relations    []string
	CustomRoutes func(g gin.IRoutes, svc *Service[T, D])
}

// Options are deployment switches shared by every module.
type Options struct {
	// FullCRUD binds the read, update, delete and criteria routes besides POST /.
	FullCRUD bool
}

// Module is one entity's Service and Controller, ready to mount.
type Module[T Entity, D any] struct {
	name    string
	db      *gorm.DB
	cfg     Config[T, D]
	opts    Options
	service *Service[T, D]
	handler *Controller[D]
}

// NewModule composes a repository, service and controller for T.
func NewModule[T Entity, D any](db *gorm.DB, logger *slog.Logger, cfg Config[T, D], opts Options) (*Module[T, D], error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("crud.NewModule: name must not be empty")
	}
	if cfg.ToDTO == nil {
		return nil, fmt.Errorf("crud.NewModule %s: ToDTO must not be nil", cfg.Name)
	}
	if cfg.CreateSchema == nil {
		return nil, fmt.Errorf("crud.NewModule %s: CreateSchema must not be nil", cfg.Name)
	}

	repo, err := NewRepository[T](db, cfg.Relations...)
	if err != nil {
		return nil, fmt.Errorf("crud.NewModule %s: %w", cfg.Name, err)
	}
	svc := NewService(cfg.Name, repo, cfg.ToDTO, logger)

	return &Module[T, D]{
		name:    cfg.Name,
		db:      db,
		cfg:     cfg,
		opts:    opts,
		service: svc,
		handler: NewController[D](svc),
	}, nil
}

// Name returns the singular module name.
func (m *Module[T, D]) Name() string { return m.name }

// Service returns the module's service.
func (m *Module[T, D]) Service() *Service[T, D] { return m.service }

// Migrate creates or updates the module's table.
func (m *Module[T, D]) Migrate(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(new(T)); err != nil {
		return fmt.Errorf("migrate %s: %w", m.name, err)
	}
	return nil
}

// Mount registers the module's routes under RoutePath(apiBase, name) and
// returns that path.
func (m *Module[T, D]) Mount(r gin.IRouter, apiBase string) string {
	path := RoutePath(apiBase, m.name)
	g := r.Group(path)

	routes := Routes{
		CreateSchema: m.cfg.CreateSchema,
		UpdateSchema: m.cfg.UpdateSchema,
		FullCRUD:     m.opts.FullCRUD,
	}
	if m.cfg.CustomRoutes != nil {
		routes.Custom = func(g gin.IRoutes) { m.cfg.CustomRoutes(g, m.service) }
	}
	BindRoutes(g, m.handler, routes)
	return path
}

// RoutePath returns the mount path of a module: apiBase + "/" + name + "s".
func RoutePath(apiBase, name string) string {
	return strings.TrimRight(apiBase, "/") + "/" + name + "s"
}
