// ABOUTME: SQLite implementation of DocumentStore using modernc.org/sqlite or mattn/go-sqlite3
// ABOUTME: Stores JSON bodies in one table and sorts with json_extract in SQL

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite driver names accepted by NewSQLiteStore.
const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// SQLiteStore implements DocumentStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path with the named
// database/sql driver ("sqlite" or "sqlite3").
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverCgo {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	memory := path == ":memory:"
	if !memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, unavailable("opening database", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, unavailable("configuring database", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "driver", driver, "path", path)
	return s, nil
}

// createSchema creates the documents table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			seq     INTEGER PRIMARY KEY AUTOINCREMENT,
			id      TEXT NOT NULL UNIQUE,
			body    TEXT NOT NULL,
			created INTEGER NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_documents_deleted ON documents(deleted);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put inserts a new document.
func (s *SQLiteStore) Put(ctx context.Context, doc Document) (string, error) {
	now := s.now()
	_, body, err := prepare(doc, now)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, body, created) VALUES (?, ?, ?)`,
		id, string(body), now.UnixMilli(),
	)
	if err != nil {
		return "", unavailable("inserting document", err)
	}
	return id, nil
}

// Get retrieves an active document by ID.
// Returns ErrNotFound if the document doesn't exist or was deleted.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE id = ? AND deleted = 0`, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("loading document", err)
	}

	doc, err := decode([]byte(body))
	if err != nil {
		return nil, err
	}
	return withID(id, doc, false), nil
}

// Delete soft-deletes a document.
// Returns ErrNotFound if the document doesn't exist or was already deleted.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET deleted = 1 WHERE id = ? AND deleted = 0`, id,
	)
	if err != nil {
		return unavailable("deleting document", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("deleting document", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every document, deleted ones flagged, in insertion order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]KeyValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, deleted FROM documents ORDER BY seq`,
	)
	if err != nil {
		return nil, unavailable("listing documents", err)
	}
	defer rows.Close()

	var out []KeyValue
	for rows.Next() {
		var (
			id, body string
			deleted  int
		)
		if err := rows.Scan(&id, &body, &deleted); err != nil {
			return nil, unavailable("scanning document", err)
		}
		doc, err := decode([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{Key: id, Value: withID(id, doc, deleted != 0)})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing documents", err)
	}
	return out, nil
}

// sortRank mirrors compare.go: missing/null, numbers and booleans, strings,
// then objects and arrays.
const sortRank = `CASE json_type(body, ?1)
		WHEN 'integer' THEN 1 WHEN 'real' THEN 1
		WHEN 'true' THEN 1 WHEN 'false' THEN 1
		WHEN 'text' THEN 2
		WHEN 'array' THEN 3 WHEN 'object' THEN 3
		ELSE 0 END`

// QueryBySortedField returns active documents ordered by a top-level field.
func (s *SQLiteStore) QueryBySortedField(ctx context.Context, field string, opts QueryOptions) ([]Row, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	path := `$."` + field + `"`

	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}

	query := fmt.Sprintf(`
		SELECT id, body
		FROM documents
		WHERE deleted = 0
		ORDER BY %s %s, json_extract(body, ?1) %s, id ASC
		LIMIT ?2`, sortRank, dir, dir)

	rows, err := s.db.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, unavailable("querying documents", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, unavailable("scanning document", err)
		}
		doc, err := decode([]byte(body))
		if err != nil {
			return nil, err
		}
		row := Row{ID: id, Key: doc[field]}
		if opts.IncludeDocs {
			row.Doc = withID(id, doc, false)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("querying documents", err)
	}
	return out, nil
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements DocumentStore
var _ DocumentStore = (*SQLiteStore)(nil)
