package domain

import "time"

// BaseModel is embedded by every persisted entity.
//
// Rows are never removed: HasDeleted marks a row as logically deleted and
// every read path in the crud layer drops such rows. Column names keep the
// camelCase schema of the existing database.
type BaseModel struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"column:createdAt;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updatedAt;autoUpdateTime" json:"updatedAt"`
	HasDeleted bool      `gorm:"column:hasDeleted;not null;default:false" json:"hasDeleted"`
}

// Deleted reports whether the row has been soft-deleted.
func (m BaseModel) Deleted() bool {
	return m.HasDeleted
}
