// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package localstore

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the record table. Safe to call multiple times -
// uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Records are stored schemaless, one JSON document per row, so the same
// table serves every collection. The created column duplicates the
// in-document timestamp to give List a stable scan order.
const schema = `
CREATE TABLE IF NOT EXISTS record (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    created TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_record_collection ON record(collection);
`
