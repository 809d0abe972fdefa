package storage

import "fmt"

// Dialect abstracts the SQL that differs between backends.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// Placeholder returns the parameter placeholder for the 1-based index.
	// SQLite: "?", PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// CreateTableSQL returns the DDL for the timelines table.
	CreateTableSQL() string

	// MaxOpenConns limits the connection pool; 0 means no limit.
	MaxOpenConns() int
}

// SQLiteDialect implements Dialect for SQLite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string           { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string { return "?" }
func (d *SQLiteDialect) MaxOpenConns() int            { return 1 }

func (d *SQLiteDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS timelines (
		saved_object_id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		updated INTEGER NOT NULL DEFAULT 0,
		doc TEXT NOT NULL
	)`
}

// PostgresDialect implements Dialect for PostgreSQL through pgx's database/sql driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string           { return "pgx" }
func (d *PostgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) MaxOpenConns() int            { return 0 }

func (d *PostgresDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS timelines (
		saved_object_id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		updated BIGINT NOT NULL DEFAULT 0,
		doc JSONB NOT NULL
	)`
}
