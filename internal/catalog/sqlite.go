package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog reads file and series metadata from the comic library's
// SQLite database.
type SQLiteCatalog struct {
	db *sql.DB
}

// OpenSQLite connects to the library database at path. The schema is owned
// by the library application; this package only reads from it.
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog database path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragma: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCatalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Resolve maps file IDs to catalog metadata, preserving input order and
// dropping unknown IDs.
func (c *SQLiteCatalog) Resolve(ctx context.Context, ids []string) ([]FileInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, file_path, file_name, size_bytes FROM comic_files WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve files: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]FileInfo, len(ids))
	for rows.Next() {
		var (
			info FileInfo
			size sql.NullInt64
		)
		if err := rows.Scan(&info.ID, &info.AbsolutePath, &info.DisplayName, &size); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		info.SizeBytes = size.Int64
		if info.DisplayName == "" {
			info.DisplayName = filepath.Base(info.AbsolutePath)
		}
		byID[info.ID] = info
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FileInfo, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if info, ok := byID[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// ResolveCollectionName looks up a human-readable name for the request scope.
func (c *SQLiteCatalog) ResolveCollectionName(ctx context.Context, kind, scopeID string) (string, error) {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return "", nil
	}

	var (
		name string
		row  *sql.Row
	)
	switch kind {
	case "series":
		row = c.db.QueryRowContext(ctx, `SELECT name FROM series WHERE id = ?`, scopeID)
	case "single-file":
		row = c.db.QueryRowContext(ctx, `SELECT file_name FROM comic_files WHERE id = ?`, scopeID)
	default:
		return "", nil
	}

	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("resolve collection name: %w", err)
	}

	if kind == "single-file" {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSpace(name), nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
