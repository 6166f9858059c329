package contact

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/crud"
	"github.com/innoval-tech/puntual-api/internal/domain"
)

// Name is the module name; routes mount under /contacts.
const Name = "contact"

// Module is the contact instance of the generic CRUD module.
type Module = crud.Module[domain.Contact, Response]

// NewModule builds the contact module.
func NewModule(db *gorm.DB, logger *slog.Logger, opts crud.Options) (*Module, error) {
	return crud.NewModule(db, logger, crud.Config[domain.Contact, Response]{
		Name:         Name,
		CreateSchema: CreateSchema,
		UpdateSchema: CreateSchema.Partial(),
		ToDTO:        ToResponse,
	}, opts)
}
