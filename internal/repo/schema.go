package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/ruser/internal/domain"
)

// EnsureTable creates the backing table for kind if it is absent. It is safe
// to call on every startup.
func EnsureTable[E domain.Entity, P any](ctx context.Context, db *gorm.DB, kind domain.Kind[E, P]) error {
	var e E
	if err := db.WithContext(ctx).Table(kind.Table).AutoMigrate(&e); err != nil {
		return fmt.Errorf("ensure table %s: %w", kind.Table, err)
	}
	return nil
}

// EnsureSchema ensures the tables of the named resource kinds plus the
// idempotency table exist.
func EnsureSchema(ctx context.Context, db *gorm.DB, resources []string) error {
	for _, name := range resources {
		var err error
		switch name {
		case domain.People.Name:
			err = EnsureTable(ctx, db, domain.People)
		case domain.Keyboards.Name:
			err = EnsureTable(ctx, db, domain.Keyboards)
		default:
			err = fmt.Errorf("ensure schema: unknown resource kind %q", name)
		}
		if err != nil {
			return err
		}
	}
	if err := db.WithContext(ctx).AutoMigrate(&domain.Idempotency{}); err != nil {
		return fmt.Errorf("ensure table %s: %w", domain.Idempotency{}.TableName(), err)
	}
	return nil
}
