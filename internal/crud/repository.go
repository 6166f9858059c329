package crud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

// Repository is the persistence port of one entity type. Criteria and option
// keys are JSON field names; implementations translate them to columns.
type Repository[T any] interface {
	// Find returns every row matching opts. Soft-deleted rows are included
	// unless opts filters them out.
	Find(ctx context.Context, opts FindOptions) ([]*T, error)
	// FindByID returns the row with the given primary key, or nil when absent.
	FindByID(ctx context.Context, id uint) (*T, error)
	FindBy(ctx context.Context, criteria map[string]any) ([]*T, error)
	// FindOneBy returns the first matching row, or nil when none matches.
	FindOneBy(ctx context.Context, criteria map[string]any) (*T, error)
	Create(ctx context.Context, entity *T) error
	// Update applies values to the row with the given id and reports the rows affected.
	Update(ctx context.Context, id uint, values map[string]any) (int64, error)
	// Transaction runs fn with a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(repo Repository[T]) error) error
	DB() *gorm.DB
}

// gormRepository implements Repository using GORM.
type gormRepository[T any] struct {
	db        *gorm.DB
	table     string
	pk        string
	columns   map[string]*schema.Field
	relations []string
}

// NewRepository creates a GORM-backed Repository for T. relations are
// preloaded on every read.
func NewRepository[T any](db *gorm.DB, relations ...string) (Repository[T], error) {
	if db == nil {
		return nil, errors.New("crud.NewRepository: db must not be nil")
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("crud.NewRepository: parse %T: %w", *new(T), err)
	}
	sch := stmt.Schema
	if sch.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("crud.NewRepository: %s has no primary key", sch.Name)
	}

	columns := make(map[string]*schema.Field, len(sch.Fields)*2)
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		columns[f.DBName] = f
		if name := jsonName(f); name != "" {
			columns[name] = f
		}
	}

	return &gormRepository[T]{
		db:        db,
		table:     sch.Table,
		pk:        sch.PrioritizedPrimaryField.DBName,
		columns:   columns,
		relations: relations,
	}, nil
}

func jsonName(f *schema.Field) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (r *gormRepository[T]) withDB(db *gorm.DB) *gormRepository[T] {
	clone := *r
	clone.db = db
	return &clone
}

func (r *gormRepository[T]) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	for _, rel := range r.relations {
		q = q.Preload(rel)
	}
	return q
}

// Find returns the rows matching opts. Unknown filter or sort fields are
// silently ignored; a value that cannot be converted to its column type is
// a validation error.
func (r *gormRepository[T]) Find(ctx context.Context, opts FindOptions) ([]*T, error) {
	q := r.query(ctx)
	for key, value := range opts.Where {
		f, ok := r.columns[key]
		if !ok {
			continue
		}
		v, err := convertValue(f, value)
		if err != nil {
			return nil, err
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.DBName}, Value: v})
	}
	if field, desc, ok := parseOrder(opts.Order); ok {
		if f, known := r.columns[field]; known {
			q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: f.DBName}, Desc: desc})
		}
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	rows := make([]*T, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// FindByID retrieves a row by its primary key.
func (r *gormRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.query(ctx).
		Where(clause.Eq{Column: clause.Column{Name: r.pk}, Value: id}).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &entity, nil
}

// FindBy returns every row whose columns equal criteria.
func (r *gormRepository[T]) FindBy(ctx context.Context, criteria map[string]any) ([]*T, error) {
	q, err := r.where(r.query(ctx), criteria)
	if err != nil {
		return nil, err
	}
	rows := make([]*T, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// FindOneBy returns the first row, by primary key, whose columns equal criteria.
func (r *gormRepository[T]) FindOneBy(ctx context.Context, criteria map[string]any) (*T, error) {
	q, err := r.where(r.query(ctx), criteria)
	if err != nil {
		return nil, err
	}
	var entity T
	err = q.First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &entity, nil
}

// Create inserts a new row.
func (r *gormRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Update writes values to the row with the given id. Keys are JSON field or
// column names; an unknown key is a validation error.
func (r *gormRepository[T]) Update(ctx context.Context, id uint, values map[string]any) (int64, error) {
	assignments, err := r.columnValues(values)
	if err != nil {
		return 0, err
	}
	if len(assignments) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(new(T)).
		Where(clause.Eq{Column: clause.Column{Name: r.pk}, Value: id}).
		Updates(assignments)
	if result.Error != nil {
		return 0, mapError(result.Error)
	}
	return result.RowsAffected, nil
}

// Transaction runs fn inside a database transaction.
func (r *gormRepository[T]) Transaction(ctx context.Context, fn func(repo Repository[T]) error) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return fn(r.withDB(tx))
	})
}

// DB returns the underlying GORM handle.
func (r *gormRepository[T]) DB() *gorm.DB {
	return r.db
}

func (r *gormRepository[T]) where(q *gorm.DB, criteria map[string]any) (*gorm.DB, error) {
	values, err := r.columnValues(criteria)
	if err != nil {
		return nil, err
	}
	for col, v := range values {
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: v})
	}
	return q, nil
}

// columnValues translates field-keyed values to column-keyed values.
func (r *gormRepository[T]) columnValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for key, value := range values {
		f, ok := r.columns[key]
		if !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown field %q", key))
		}
		v, err := convertValue(f, value)
		if err != nil {
			return nil, err
		}
		out[f.DBName] = v
	}
	return out, nil
}

// convertValue parses string input for boolean and numeric columns. Other
// values pass through unchanged.
func convertValue(f *schema.Field, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	var (
		v   any
		err error
	)
	switch f.DataType {
	case schema.Bool:
		v, err = strconv.ParseBool(s)
	case schema.Int:
		v, err = strconv.ParseInt(s, 10, 64)
	case schema.Uint:
		v, err = strconv.ParseUint(s, 10, 64)
	case schema.Float:
		v, err = strconv.ParseFloat(s, 64)
	default:
		return s, nil
	}
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid value for %s", f.DBName))
	}
	return v, nil
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by message, since
// not every dialector translates them to gorm.ErrDuplicatedKey.
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
