package crud

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// widget is a minimal entity exercising string, bool and decimal columns.
type widget struct {
	domain.BaseModel
	Label  string          `gorm:"column:label;size:100" json:"label"`
	Active bool            `gorm:"column:active;not null" json:"active"`
	Price  decimal.Decimal `gorm:"column:unitPrice;type:decimal(12,2)" json:"unitPrice"`
}

func (widget) TableName() string { return "widgets" }

type widgetDTO struct {
	ID     uint    `json:"id"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
	Price  float64 `json:"unitPrice"`
}

func toWidgetDTO(w *widget) widgetDTO {
	return widgetDTO{
		ID:     w.ID,
		Label:  w.Label,
		Active: w.Active,
		Price:  w.Price.InexactFloat64(),
	}
}

var widgetSchema = pkg.NewSchema(
	pkg.Field{
		Name: "label", Type: pkg.TypeString, Required: true,
		RequiredMessage: "label is required", TypeMessage: "label must be a string",
		Checks: []pkg.Check{pkg.Length(2, 100, "label must be between 2 and 100 characters")},
	},
	pkg.Field{
		Name: "active", Type: pkg.TypeBoolean,
		TypeMessage: "active must be a boolean",
	},
	pkg.Field{
		Name: "unitPrice", Type: pkg.TypeNumber,
		TypeMessage: "unitPrice must be a number",
		Checks:      []pkg.Check{pkg.Min(0.01, "unitPrice must be at least 0.01")},
	},
)

// setupTestDB opens an in-memory SQLite database with the widgets table.
// A single connection keeps transactions on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func newWidgetRepo(t *testing.T, db *gorm.DB) Repository[widget] {
	t.Helper()
	repo, err := NewRepository[widget](db)
	require.NoError(t, err)
	return repo
}

func seedWidget(t *testing.T, repo Repository[widget], label string, deleted bool) *widget {
	t.Helper()
	w := &widget{Label: label, Active: true, Price: decimal.RequireFromString("9.99")}
	require.NoError(t, repo.Create(context.Background(), w))
	if deleted {
		_, err := repo.Update(context.Background(), w.ID, map[string]any{"hasDeleted": true})
		require.NoError(t, err)
		w.HasDeleted = true
	}
	return w
}
