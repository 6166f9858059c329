package crud

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"regexp"

	"github.com/go-viper/mapstructure/v2"
	"gorm.io/gorm"

	"github.com/innoval-tech/puntual-api/internal/domain"
)

// Entity is the constraint every persisted type satisfies through domain.BaseModel.
type Entity interface {
	Deleted() bool
}

// softDeleteField is the JSON name of the soft-delete flag.
const softDeleteField = "hasDeleted"

// protectedFields are never taken from caller input on create or update.
var protectedFields = []string{"id", "createdAt", "updatedAt", "initAt", softDeleteField}

var validAlias = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// CRUDService is what a Controller needs from a service. D is the response DTO.
type CRUDService[D any] interface {
	FindAll(ctx context.Context, opts FindOptions) ([]D, error)
	FindByID(ctx context.Context, id uint) (*D, error)
	FindBy(ctx context.Context, criteria map[string]any) ([]D, error)
	FindOneBy(ctx context.Context, criteria map[string]any) (*D, error)
	Create(ctx context.Context, data map[string]any) (*D, error)
	Update(ctx context.Context, id uint, data map[string]any) (*D, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

// Service mediates between one entity's repository and its response DTO.
// Soft-deleted rows never leave it.
type Service[T Entity, D any] struct {
	repo   Repository[T]
	toDTO  func(*T) D
	name   string
	logger *slog.Logger
}

// NewService creates a Service for T. Panics if repo or toDTO is nil.
// A nil logger falls back to slog.Default().
func NewService[T Entity, D any](name string, repo Repository[T], toDTO func(*T) D, logger *slog.Logger) *Service[T, D] {
	if repo == nil {
		panic("crud.NewService: repo must not be nil")
	}
	if toDTO == nil {
		panic("crud.NewService: toDTO must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service[T, D]{
		repo:   repo,
		toDTO:  toDTO,
		name:   name,
		logger: logger.With("module", name),
	}
}

// FindAll returns every non-deleted row matching opts.
func (s *Service[T, D]) FindAll(ctx context.Context, opts FindOptions) ([]D, error) {
	opts.Where = withoutDeleted(opts.Where)
	rows, err := s.repo.Find(ctx, opts)
	if err != nil {
		s.logger.ErrorContext(ctx, "find all failed", "error", err)
		return nil, err
	}
	return s.transformMany(ctx, rows), nil
}

// FindByID returns the row with the given id, or nil when it is absent or deleted.
func (s *Service[T, D]) FindByID(ctx context.Context, id uint) (*D, error) {
	return s.findByID(ctx, s.repo, id)
}

func (s *Service[T, D]) findByID(ctx context.Context, repo Repository[T], id uint) (*D, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "find by id failed", "id", id, "error", err)
		return nil, err
	}
	return s.transformOne(row), nil
}

// FindBy returns every non-deleted row whose fields equal criteria.
func (s *Service[T, D]) FindBy(ctx context.Context, criteria map[string]any) ([]D, error) {
	rows, err := s.repo.FindBy(ctx, withoutDeleted(criteria))
	if err != nil {
		s.logger.ErrorContext(ctx, "find by failed", "error", err)
		return nil, err
	}
	return s.transformMany(ctx, rows), nil
}

// FindOneBy returns the first non-deleted row whose fields equal criteria, or nil.
func (s *Service[T, D]) FindOneBy(ctx context.Context, criteria map[string]any) (*D, error) {
	row, err := s.repo.FindOneBy(ctx, withoutDeleted(criteria))
	if err != nil {
		s.logger.ErrorContext(ctx, "find one by failed", "error", err)
		return nil, err
	}
	return s.transformOne(row), nil
}

// Create persists a new row from data. Identity, timestamp and soft-delete
// fields in data are ignored.
func (s *Service[T, D]) Create(ctx context.Context, data map[string]any) (*D, error) {
	entity := new(T)
	if err := decode(stripProtected(data), entity); err != nil {
		s.logger.ErrorContext(ctx, "decode create payload failed", "error", err)
		return nil, domain.NewAppError(domain.CodeValidation, "invalid payload", err)
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		s.logger.ErrorContext(ctx, "create failed", "error", err)
		return nil, err
	}
	dto := s.toDTO(entity)
	return &dto, nil
}

// Update applies data to the row with the given id and returns the row as
// re-read within the same transaction. It returns nil when the row is absent
// or deleted.
func (s *Service[T, D]) Update(ctx context.Context, id uint, data map[string]any) (*D, error) {
	values := stripProtected(data)
	var updated *D
	err := s.repo.Transaction(ctx, func(repo Repository[T]) error {
		if len(values) > 0 {
			if _, err := repo.Update(ctx, id, values); err != nil {
				return err
			}
		}
		dto, err := s.findByID(ctx, repo, id)
		if err != nil {
			return err
		}
		updated = dto
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "update failed", "id", id, "error", err)
		return nil, err
	}
	return updated, nil
}

// Delete marks the row with the given id as deleted. It reports whether any
// row was affected; rows are never physically removed.
func (s *Service[T, D]) Delete(ctx context.Context, id uint) (bool, error) {
	affected, err := s.repo.Update(ctx, id, map[string]any{softDeleteField: true})
	if err != nil {
		s.logger.ErrorContext(ctx, "delete failed", "id", id, "error", err)
		return false, err
	}
	return affected > 0, nil
}

// Repository exposes the underlying repository for module-specific queries.
func (s *Service[T, D]) Repository() Repository[T] {
	return s.repo
}

// QueryBuilder returns a query over T's table aliased as alias.
func (s *Service[T, D]) QueryBuilder(ctx context.Context, alias string) (*gorm.DB, error) {
	if !validAlias.MatchString(alias) {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid alias %q", alias))
	}
	db := s.repo.DB().WithContext(ctx)
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "parse model", err)
	}
	return db.Model(new(T)).Table(stmt.Schema.Table + " AS " + alias), nil
}

// ExecuteCustomQuery runs fn against the database and transforms its result.
// Like every other read, soft-deleted rows in the result are dropped, so fn
// need not filter on hasDeleted itself.
func (s *Service[T, D]) ExecuteCustomQuery(ctx context.Context, fn func(db *gorm.DB) ([]*T, error)) ([]D, error) {
	rows, err := fn(s.repo.DB().WithContext(ctx))
	if err != nil {
		s.logger.ErrorContext(ctx, "custom query failed", "error", err)
		return nil, err
	}
	return s.transformMany(ctx, rows), nil
}

func (s *Service[T, D]) transformOne(row *T) *D {
	if row == nil || (*row).Deleted() {
		return nil
	}
	dto := s.toDTO(row)
	return &dto
}

// transformMany projects rows to DTOs, dropping deleted rows. A nil element
// degrades the whole result to an empty slice.
func (s *Service[T, D]) transformMany(ctx context.Context, rows []*T) []D {
	if rows == nil {
		return nil
	}
	out := make([]D, 0, len(rows))
	for i, row := range rows {
		if row == nil {
			s.logger.WarnContext(ctx, "nil entity in result set", "index", i)
			return []D{}
		}
		if (*row).Deleted() {
			continue
		}
		out = append(out, s.toDTO(row))
	}
	return out
}

func withoutDeleted(criteria map[string]any) map[string]any {
	out := make(map[string]any, len(criteria)+1)
	maps.Copy(out, criteria)
	out[softDeleteField] = false
	return out
}

func stripProtected(data map[string]any) map[string]any {
	out := maps.Clone(data)
	if out == nil {
		return map[string]any{}
	}
	for _, k := range protectedFields {
		delete(out, k)
	}
	return out
}

// decode copies JSON-keyed data into entity. Types implementing sql.Scanner,
// such as decimal.Decimal, are decoded through Scan.
func decode(data map[string]any, entity any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Squash:     true,
		Result:     entity,
		DecodeHook: scannerHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func scannerHook(from, to reflect.Type, data any) (any, error) {
	if from == nil || from == to || !reflect.PointerTo(to).Implements(scannerType) {
		return data, nil
	}
	v := reflect.New(to)
	if err := v.Interface().(sql.Scanner).Scan(data); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}
