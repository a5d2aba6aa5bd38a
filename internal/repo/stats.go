// Package repo implements the data persistence layer for resource kinds,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// TableStats returns aggregate metadata for table: the total number of rows
// and the greatest id. Rows are never updated or deleted through the API, and
// AUTOINCREMENT ids are never reused, so the pair changes exactly when the
// table's contents change.
//
// When the table is empty both values are 0.
func TableStats(ctx context.Context, db *gorm.DB, table string) (count, maxID int64, err error) {
	var row struct {
		Count int64
		MaxID int64
	}
	err = db.WithContext(ctx).
		Table(table).
		Select("COUNT(*) AS count, COALESCE(MAX(id), 0) AS max_id").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Count, row.MaxID, nil
}
