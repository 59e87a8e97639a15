package testsupport

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"bindery/internal/catalog"
	"bindery/internal/config"
)

// FakeCatalog is an in-memory catalog keyed by file ID. The zero value is
// usable; add files with AddFile.
type FakeCatalog struct {
	files       map[string]catalog.FileInfo
	collections map[string]string
}

// NewFakeCatalog returns an empty fake catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		files:       make(map[string]catalog.FileInfo),
		collections: make(map[string]string),
	}
}

// AddFile registers a file and returns its info.
func (c *FakeCatalog) AddFile(info catalog.FileInfo) catalog.FileInfo {
	c.files[info.ID] = info
	return info
}

// AddScratchFile creates a real file of the given size under dir, registers
// it, and returns its info.
func (c *FakeCatalog) AddScratchFile(t testing.TB, dir, id, name string, size int64) catalog.FileInfo {
	t.Helper()

	path := filepath.Join(dir, name)
	WriteFile(t, path, size)
	return c.AddFile(catalog.FileInfo{
		ID:           id,
		AbsolutePath: path,
		DisplayName:  name,
		SizeBytes:    size,
	})
}

// SetCollectionName registers a display name for kind/scopeID lookups.
func (c *FakeCatalog) SetCollectionName(kind, scopeID, name string) {
	c.collections[kind+"/"+scopeID] = name
}

// Resolve implements catalog.Catalog.
func (c *FakeCatalog) Resolve(_ context.Context, ids []string) ([]catalog.FileInfo, error) {
	out := make([]catalog.FileInfo, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if info, ok := c.files[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// ResolveCollectionName implements catalog.Catalog.
func (c *FakeCatalog) ResolveCollectionName(_ context.Context, kind, scopeID string) (string, error) {
	return c.collections[kind+"/"+scopeID], nil
}

// SeedLibrary creates the minimal library schema at cfg.Paths.LibraryDB and
// inserts the provided files so SQLiteCatalog tests run against a real
// database.
func SeedLibrary(t testing.TB, cfg *config.Config, series map[string]string, files []catalog.FileInfo) {
	t.Helper()

	db, err := sql.Open("sqlite", cfg.Paths.LibraryDB)
	if err != nil {
		t.Fatalf("open library db: %v", err)
	}
	defer db.Close()

	const schema = `
CREATE TABLE IF NOT EXISTS series (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS comic_files (
    id TEXT PRIMARY KEY,
    file_path TEXT NOT NULL,
    file_name TEXT NOT NULL,
    size_bytes INTEGER
);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create library schema: %v", err)
	}

	for id, name := range series {
		if _, err := db.Exec(`INSERT INTO series (id, name) VALUES (?, ?)`, id, name); err != nil {
			t.Fatalf("insert series %s: %v", id, err)
		}
	}
	for _, info := range files {
		if _, err := db.Exec(
			`INSERT INTO comic_files (id, file_path, file_name, size_bytes) VALUES (?, ?, ?, ?)`,
			info.ID, info.AbsolutePath, info.DisplayName, info.SizeBytes,
		); err != nil {
			t.Fatalf("insert file %s: %v", info.ID, err)
		}
	}
}
