package payment

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/crud"
	"github.com/innoval-tech/puntual-api/internal/domain"
)

// Name is the module name; routes mount under /payments.
const Name = "payment"

// Module is the payment instance of the generic CRUD module.
type Module = crud.Module[domain.Payment, Response]

// NewModule builds the payment module.
func NewModule(db *gorm.DB, logger *slog.Logger, opts crud.Options) (*Module, error) {
	return crud.NewModule(db, logger, crud.Config[domain.Payment, Response]{
		Name:         Name,
		CreateSchema: CreateSchema,
		UpdateSchema: CreateSchema.Partial(),
		ToDTO:        ToResponse,
	}, opts)
}
