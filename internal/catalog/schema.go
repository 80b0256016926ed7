package catalog

import (
	"context"

	"catalog-sync-service/internal/database"
)

// Migrate creates the catalog tables when they do not exist.
func Migrate(ctx context.Context, db *database.Database) error {
	return db.Migrate(ctx, []string{
		`CREATE TABLE IF NOT EXISTS products (
			code VARCHAR(64) NOT NULL PRIMARY KEY,
			description VARCHAR(255) NOT NULL,
			manufacture_date VARCHAR(10) NOT NULL,
			cost DOUBLE NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			synced BOOLEAN NOT NULL DEFAULT FALSE,
			image_uri VARCHAR(1024) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id ` + db.AutoIncrementPK() + `,
			first_name VARCHAR(128) NOT NULL,
			last_name VARCHAR(128) NOT NULL,
			password VARCHAR(255) NOT NULL,
			local_hash VARCHAR(255) NOT NULL DEFAULT '',
			synced BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	})
}
