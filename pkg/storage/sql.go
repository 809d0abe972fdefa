package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore keeps timeline documents in a single SQL table. It implements Store
// for every Dialect.
type SQLStore struct {
	dsn     string
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens, or creates, a SQLite timeline database at path. The
// parent directory of a plain file path is created when missing.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return openSQL(&SQLiteDialect{}, path)
}

// OpenPostgres opens a PostgreSQL timeline database. The database must exist;
// the table is created when missing.
func OpenPostgres(connStr string) (*SQLStore, error) {
	return openSQL(&PostgresDialect{}, connStr)
}

func openSQL(d Dialect, dsn string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if n := d.MaxOpenConns(); n > 0 {
		conn.SetMaxOpenConns(n)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := conn.Exec(d.CreateTableSQL()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if _, err := conn.Exec("CREATE INDEX IF NOT EXISTS timelines_updated ON timelines (updated)"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &SQLStore{dsn: dsn, conn: conn, dialect: d}, nil
}

// Get returns the document stored under id.
func (s *SQLStore) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx,
		"SELECT doc FROM timelines WHERE saved_object_id = "+s.dialect.Placeholder(1), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying timeline %s: %w", id, err)
	}
	return json.RawMessage(doc), nil
}

// Put inserts doc or replaces the stored document with the same savedObjectId.
func (s *SQLStore) Put(ctx context.Context, doc json.RawMessage) (string, error) {
	r, err := parseRecord(doc)
	if err != nil {
		return "", err
	}

	p := s.dialect.Placeholder
	stmt := fmt.Sprintf(`INSERT INTO timelines (saved_object_id, title, updated, doc)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (saved_object_id) DO UPDATE SET
			title = excluded.title, updated = excluded.updated, doc = excluded.doc`,
		p(1), p(2), p(3), p(4))
	if _, err := s.conn.ExecContext(ctx, stmt, r.SavedObjectID, r.Title, r.Updated, string(r.Doc)); err != nil {
		return "", fmt.Errorf("saving timeline %s: %w", r.SavedObjectID, err)
	}
	return r.SavedObjectID, nil
}

// List returns every stored document, most recently updated first.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT saved_object_id, title, updated, doc FROM timelines ORDER BY updated DESC, saved_object_id")
	if err != nil {
		return nil, fmt.Errorf("listing timelines: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var doc string
		if err := rows.Scan(&r.SavedObjectID, &r.Title, &r.Updated, &doc); err != nil {
			return nil, fmt.Errorf("scanning timeline: %w", err)
		}
		r.Doc = json.RawMessage(doc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the document stored under id.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx,
		"DELETE FROM timelines WHERE saved_object_id = "+s.dialect.Placeholder(1), id)
	if err != nil {
		return fmt.Errorf("deleting timeline %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting timeline %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored timelines.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM timelines").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting timelines: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// DSN returns the path or connection string the store was opened with.
func (s *SQLStore) DSN() string {
	return s.dsn
}
