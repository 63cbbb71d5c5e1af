// Package db embeds the SQL migrations for each supported record store driver.
package db

import "embed"

// Migrations holds migrations/<driver>/NNNNNN_name.{up,down}.sql.
//
//go:embed migrations
var Migrations embed.FS

// Dir returns the migration directory inside Migrations for a driver.
func Dir(driver string) string {
	if driver == "sqlite3" {
		return "migrations/sqlite3"
	}
	return "migrations/postgres"
}
