package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// PendingExchangeIndex enforces at most one pending request per (book, requester).
const PendingExchangeIndex = "idx_exchanges_pending_book_requester"

type partialIndex struct {
	table string
	name  string
	ddl   string
}

// Struct tags cannot express a WHERE clause. The DDL is valid for both
// postgres and sqlite.
var partialIndexes = []partialIndex{
	{
		table: "exchanges",
		name:  PendingExchangeIndex,
		ddl: `CREATE UNIQUE INDEX IF NOT EXISTS ` + PendingExchangeIndex +
			` ON exchanges (book_id, to_user_id) WHERE status = 'pending'`,
	},
}

// EnsureIndexes creates the partial indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *gorm.DB) error {
	for _, idx := range partialIndexes {
		if err := db.WithContext(ctx).Exec(idx.ddl).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// MissingIndexes names the partial indexes not present in db.
func MissingIndexes(db *gorm.DB) []string {
	var missing []string
	for _, idx := range partialIndexes {
		if !db.Migrator().HasIndex(idx.table, idx.name) {
			missing = append(missing, idx.name)
		}
	}
	return missing
}
