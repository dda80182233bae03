// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration. The collection row store in
// feature/store runs on either driver.
//
// # Connect
//
// Connect picks the dialector from Config.Driver, applies pool settings and
// pings the database within the configured timeout.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table on both drivers. MissingColumns
// reports which expected columns a table lacks, which the row store uses to
// verify an existing collection_rows table before serving from it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "collection_rows", []string{"role", "owner_id"})
package database
