// Package catalog is the local resource catalog: published files keyed by
// stable id, with their upload history.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"permadeploy/internal/catalog/migrations"
	"permadeploy/internal/pd"
)

// SQLiteCatalog implements pd.Catalog on SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

var _ pd.Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog opens the catalog at path, creating it and applying
// migrations as needed. path may be ":memory:".
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return &SQLiteCatalog{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// CheckMigrations verifies the catalog schema is up-to-date.
func (c *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckStatus(c.db)
}

// FindByPath returns the resource stored for path, or nil if none exists.
func (c *SQLiteCatalog) FindByPath(ctx context.Context, path string) (*pd.Resource, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, path, title, type, created_at, updated_at FROM resources WHERE path = ?`, path)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding resource by path: %w", err)
	}
	return r, nil
}

// FindByID returns the resource with id, or nil if none exists.
func (c *SQLiteCatalog) FindByID(ctx context.Context, id string) (*pd.Resource, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, path, title, type, created_at, updated_at FROM resources WHERE id = ?`, id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding resource by id: %w", err)
	}
	return r, nil
}

// InsertOrUpdate creates the resource or updates the record with the same
// id. created_at of an existing record is kept. When another resource
// already holds the path, that resource is detached from it.
func (c *SQLiteCatalog) InsertOrUpdate(ctx context.Context, r *pd.Resource) error {
	if r.ID == "" {
		return fmt.Errorf("%w: resource id is required", pd.ErrValidation)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	path := sql.NullString{String: r.Path, Valid: r.Path != ""}
	if path.Valid {
		if _, err := tx.ExecContext(ctx,
			`UPDATE resources SET path = NULL WHERE path = ? AND id != ?`, r.Path, r.ID); err != nil {
			return fmt.Errorf("detaching path: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resources (id, path, title, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			type = excluded.type,
			updated_at = excluded.updated_at`,
		r.ID, path, r.Title, r.Type, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting resource: %w", err)
	}
	return tx.Commit()
}

// AppendUploadRecord adds an upload to a resource's history. The resource
// must already exist.
func (c *SQLiteCatalog) AppendUploadRecord(ctx context.Context, rec *pd.UploadRecord) error {
	existing, err := c.FindByID(ctx, rec.ResourceID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: resource %s", pd.ErrNotFound, rec.ResourceID)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO upload_records (resource_id, transaction_id, link, uploaded_at)
		VALUES (?, ?, ?, ?)`,
		rec.ResourceID, rec.TransactionID, rec.Link, toMillis(rec.UploadedAt))
	if err != nil {
		return fmt.Errorf("inserting upload record: %w", err)
	}
	return nil
}

// ListUploadRecords returns a resource's uploads, newest first.
func (c *SQLiteCatalog) ListUploadRecords(ctx context.Context, resourceID string) ([]*pd.UploadRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT resource_id, transaction_id, link, uploaded_at
		FROM upload_records
		WHERE resource_id = ?
		ORDER BY uploaded_at DESC, id DESC`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("listing upload records: %w", err)
	}
	defer rows.Close()

	var out []*pd.UploadRecord
	for rows.Next() {
		var rec pd.UploadRecord
		var uploaded int64
		if err := rows.Scan(&rec.ResourceID, &rec.TransactionID, &rec.Link, &uploaded); err != nil {
			return nil, fmt.Errorf("scanning upload record: %w", err)
		}
		rec.UploadedAt = fromMillis(uploaded)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func scanResource(row *sql.Row) (*pd.Resource, error) {
	var r pd.Resource
	var path sql.NullString
	var created, updated int64
	if err := row.Scan(&r.ID, &path, &r.Title, &r.Type, &created, &updated); err != nil {
		return nil, err
	}
	r.Path = path.String
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
