// Package catalog exposes the comic library's file metadata to the download
// engine.
//
// The engine never writes to the catalog; it only resolves file identifiers
// to on-disk paths, display names, and sizes, plus series names for default
// bundle naming. The rest of the library application (routes, enrichment,
// reading progress) owns the catalog schema.
package catalog

import "context"

// FileInfo describes one resolvable comic file.
type FileInfo struct {
	ID           string
	AbsolutePath string
	DisplayName  string
	SizeBytes    int64
}

// Catalog resolves file identifiers and collection names.
type Catalog interface {
	// Resolve maps file IDs to their metadata, preserving the input order.
	// Unknown IDs are silently dropped; callers treat absent entries the
	// same as files missing from disk.
	Resolve(ctx context.Context, ids []string) ([]FileInfo, error)

	// ResolveCollectionName returns a display name for the scope a request
	// was made against (a series name, a file's title). Returns "" when no
	// name is known; callers fall back to a generic bundle name.
	ResolveCollectionName(ctx context.Context, kind, scopeID string) (string, error)
}
