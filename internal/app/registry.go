package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/crud"
	"github.com/innoval-tech/puntual-api/internal/module/contact"
	"github.com/innoval-tech/puntual-api/internal/module/payment"
)

// Descriptor describes how to build one module.
type Descriptor struct {
	Name  string
	Build func(db *gorm.DB, logger *slog.Logger, opts crud.Options) (Module, error)
}

// Registry lists every module of the API in mount order.
var Registry = []Descriptor{
	descriptor(contact.Name, contact.NewModule),
	descriptor(payment.Name, payment.NewModule),
}

func descriptor[M Module](name string, build func(*gorm.DB, *slog.Logger, crud.Options) (M, error)) Descriptor {
	return Descriptor{
		Name: name,
		Build: func(db *gorm.DB, logger *slog.Logger, opts crud.Options) (Module, error) {
			m, err := build(db, logger, opts)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

// BuildModules builds every descriptor concurrently. A descriptor that fails
// or panics is logged and left out; the rest are returned in registry order.
func BuildModules(ctx context.Context, descriptors []Descriptor, db *gorm.DB, logger *slog.Logger, opts crud.Options) []Module {
	if logger == nil {
		logger = slog.Default()
	}

	built := make([]Module, len(descriptors))
	var wg sync.WaitGroup
	for i, d := range descriptors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := buildOne(d, db, logger, opts)
			if err != nil {
				logger.ErrorContext(ctx, "module build failed",
					slog.String("module", d.Name),
					slog.Any("error", err),
				)
				return
			}
			built[i] = m
		}()
	}
	wg.Wait()

	modules := make([]Module, 0, len(built))
	for _, m := range built {
		if m != nil {
			modules = append(modules, m)
		}
	}
	return modules
}

func buildOne(d Descriptor, db *gorm.DB, logger *slog.Logger, opts crud.Options) (m Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if d.Build == nil {
		return nil, fmt.Errorf("module %q has no builder", d.Name)
	}
	m, err = d.Build(db, logger, opts)
	if err == nil && m == nil {
		err = fmt.Errorf("module %q builder returned nil", d.Name)
	}
	return m, err
}

// MigrateModules runs Migrate for each module in order and stops at the first
// failure.
func MigrateModules(ctx context.Context, modules []Module) error {
	for _, m := range modules {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}
