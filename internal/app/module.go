package app

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Module is a business module the application mounts under the API base.
type Module interface {
	Name() string
	// Migrate creates or updates the module's tables.
	Migrate(ctx context.Context) error
	// Mount registers the module's routes and returns their base path.
	Mount(r gin.IRouter, apiBase string) string
}
