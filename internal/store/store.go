// Package store exposes a small document-collection API over gorm. Each model maps to one
// collection (table); documents are addressed by id and queried with simple field filters.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrInvalidField is returned when a filter or order references an unsafe field name.
	ErrInvalidField = errors.New("store: invalid field name")
	// ErrUnscopedDelete is returned when DeleteWhere is called without filters.
	ErrUnscopedDelete = errors.New("store: delete requires at least one filter")
)

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Op is a filter comparison operator.
type Op string

const (
	OpEq      Op = "=="
	OpNeq     Op = "!="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpIn      Op = "in"
	OpNull    Op = "null"
	OpNotNull Op = "not-null"
)

// Filter restricts a query to documents whose Field satisfies Op against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Filter  { return Filter{Field: field, Op: OpEq, Value: value} }
func Neq(field string, value any) Filter { return Filter{Field: field, Op: OpNeq, Value: value} }
func Lt(field string, value any) Filter  { return Filter{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Filter { return Filter{Field: field, Op: OpLte, Value: value} }
func Gt(field string, value any) Filter  { return Filter{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Filter { return Filter{Field: field, Op: OpGte, Value: value} }
func In(field string, values any) Filter { return Filter{Field: field, Op: OpIn, Value: values} }
func IsNull(field string) Filter         { return Filter{Field: field, Op: OpNull} }
func NotNull(field string) Filter        { return Filter{Field: field, Op: OpNotNull} }

// Query describes a filtered, optionally ordered and paginated read.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// Where is shorthand for a Query with only filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// Store is the document store adapter used by services.
type Store struct {
	db *gorm.DB
}

// New constructs a Store around db.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Insert creates doc. Ids are generated by the model when empty.
func (s *Store) Insert(ctx context.Context, doc any) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// Get loads the document with id into dest.
func (s *Store) Get(ctx context.Context, dest any, id string) error {
	err := s.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: get %s: %w", id, err)
	}
	return nil
}

// Update applies fields to the document with id. The document must exist.
func (s *Store) Update(ctx context.Context, model any, id string, fields map[string]any) error {
	if err := validateFields(fields); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		idEq := clause.Eq{Column: clause.Column{Name: "id"}, Value: id}

		var count int64
		if err := tx.Model(model).Where(idEq).Count(&count).Error; err != nil {
			return fmt.Errorf("store: update %s: %w", id, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(model).Where(idEq).Updates(fields).Error; err != nil {
			return fmt.Errorf("store: update %s: %w", id, err)
		}
		return nil
	})
}

// UpdateWhere applies fields to every document matching filters and returns the number updated.
func (s *Store) UpdateWhere(ctx context.Context, model any, fields map[string]any, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, errors.New("store: update requires at least one filter")
	}
	if err := validateFields(fields); err != nil {
		return 0, err
	}
	tx, err := applyFilters(s.db.WithContext(ctx).Model(model), filters)
	if err != nil {
		return 0, err
	}
	result := tx.Updates(fields)
	if result.Error != nil {
		return 0, fmt.Errorf("store: update where: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Find loads every document matching q into dest, which must point to a slice.
func (s *Store) Find(ctx context.Context, dest any, q Query) error {
	tx, err := applyFilters(s.db.WithContext(ctx), q.Filters)
	if err != nil {
		return err
	}
	if q.OrderBy != "" {
		if !fieldPattern.MatchString(q.OrderBy) {
			return fmt.Errorf("%w: %q", ErrInvalidField, q.OrderBy)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Descending})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Find(dest).Error; err != nil {
		return fmt.Errorf("store: find: %w", err)
	}
	return nil
}

// Count returns the number of documents of model matching filters.
func (s *Store) Count(ctx context.Context, model any, filters ...Filter) (int64, error) {
	tx, err := applyFilters(s.db.WithContext(ctx).Model(model), filters)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return count, nil
}

// DeleteWhere removes every document matching filters as one atomic batch.
func (s *Store) DeleteWhere(ctx context.Context, model any, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrUnscopedDelete
	}
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped, err := applyFilters(tx, filters)
		if err != nil {
			return err
		}
		result := scoped.Delete(model)
		if result.Error != nil {
			return fmt.Errorf("store: delete where: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteByID removes the document with id and reports whether it existed.
func (s *Store) DeleteByID(ctx context.Context, model any, id string) (bool, error) {
	deleted, err := s.DeleteWhere(ctx, model, Eq("id", id))
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func applyFilters(tx *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		expr, err := f.expression()
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr)
	}
	return tx, nil
}

func (f Filter) expression() (clause.Expression, error) {
	if !fieldPattern.MatchString(f.Field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
	}
	column := clause.Column{Name: f.Field}

	switch f.Op {
	case OpEq:
		return clause.Eq{Column: column, Value: f.Value}, nil
	case OpNeq:
		return clause.Neq{Column: column, Value: f.Value}, nil
	case OpLt:
		return clause.Lt{Column: column, Value: f.Value}, nil
	case OpLte:
		return clause.Lte{Column: column, Value: f.Value}, nil
	case OpGt:
		return clause.Gt{Column: column, Value: f.Value}, nil
	case OpGte:
		return clause.Gte{Column: column, Value: f.Value}, nil
	case OpIn:
		values, err := toValues(f.Value)
		if err != nil {
			return nil, err
		}
		return clause.IN{Column: column, Values: values}, nil
	case OpNull:
		return clause.Eq{Column: column, Value: nil}, nil
	case OpNotNull:
		return clause.Neq{Column: column, Value: nil}, nil
	default:
		return nil, fmt.Errorf("store: unsupported operator %q", f.Op)
	}
}

func toValues(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("store: in filter expects a slice, got %T", value)
	}
}

func validateFields(fields map[string]any) error {
	for name := range fields {
		if !fieldPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidField, name)
		}
	}
	return nil
}
