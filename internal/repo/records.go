// Package repo implements the data persistence layer for resource kinds,
// backed by GORM. This file provides the generic record functions shared by
// every kind.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition. The table is passed explicitly so one
// implementation serves every domain.Kind.
//
// Error semantics:
//   - When a record is not found, GetRecord returns ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	p := domain.People.Build(payload)
//	if err := repo.InsertRecord(ctx, db, domain.People.Table, &p); err != nil {
//	    // handle DB failure
//	}
//	got, err := repo.GetRecord[domain.Person](ctx, db, domain.People.Table, p.ID)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	}
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// InsertRecord inserts e into table. The database assigns the id, which GORM
// writes back into e.
func InsertRecord[E any](ctx context.Context, db *gorm.DB, table string, e *E) error {
	return db.WithContext(ctx).Table(table).Create(e).Error
}

// ListRecords returns every row of table ordered by id ascending. It returns
// an empty (non-nil) slice when the table is empty.
func ListRecords[E any](ctx context.Context, db *gorm.DB, table string) ([]E, error) {
	out := []E{}
	err := db.WithContext(ctx).
		Table(table).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountRecords returns the number of rows in table.
func CountRecords(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Table(table).Count(&total).Error
	return total, err
}

// ListRecordsPage returns a page of rows ordered by id ascending. Use
// CountRecords to obtain the total for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListRecordsPage[E any](ctx context.Context, db *gorm.DB, table string, offset, limit int) ([]E, error) {
	out := []E{}
	err := db.WithContext(ctx).
		Table(table).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetRecord fetches a single row by id. If the row does not exist, it
// returns ErrNotFound.
func GetRecord[E any](ctx context.Context, db *gorm.DB, table string, id int64) (*E, error) {
	var e E
	err := db.WithContext(ctx).
		Table(table).
		Where("id = ?", id).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Records binds the generic record functions to one table. It satisfies the
// repository contract expected by services.ResourceService.
type Records[E any] struct {
	Table string
}

// Insert inserts e and writes the assigned id back into it.
func (r Records[E]) Insert(ctx context.Context, db *gorm.DB, e *E) error {
	return InsertRecord(ctx, db, r.Table, e)
}

// List returns every row ordered by id.
func (r Records[E]) List(ctx context.Context, db *gorm.DB) ([]E, error) {
	return ListRecords[E](ctx, db, r.Table)
}

// ListPage returns a page of rows ordered by id.
func (r Records[E]) ListPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]E, error) {
	return ListRecordsPage[E](ctx, db, r.Table, offset, limit)
}

// Count returns the number of rows.
func (r Records[E]) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	return CountRecords(ctx, db, r.Table)
}

// Get fetches a row by id or returns ErrNotFound.
func (r Records[E]) Get(ctx context.Context, db *gorm.DB, id int64) (*E, error) {
	return GetRecord[E](ctx, db, r.Table, id)
}

// Stats returns the row count and greatest id.
func (r Records[E]) Stats(ctx context.Context, db *gorm.DB) (count, maxID int64, err error) {
	return TableStats(ctx, db, r.Table)
}
