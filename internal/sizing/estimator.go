// Package sizing computes advisory size estimates for bundle requests.
//
// An estimate is a snapshot: it resolves the requested files through the
// catalog, probes on-disk existence, and reports totals plus a split
// recommendation. It has no side effects and the build step re-decides
// inclusion per file, since file state can change between estimate and build.
package sizing

import (
	"context"
	"fmt"

	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/fileutil"
)

// PerFile describes one requested file's contribution to the estimate.
type PerFile struct {
	ID     string
	Name   string
	Path   string
	Size   int64
	Exists bool
}

// Estimate summarizes a requested file set.
type Estimate struct {
	TotalSizeBytes    int64
	FileCount         int
	SuggestSplit      bool
	EstimatedParts    int
	NeedsConfirmation bool
	PerFile           []PerFile
}

// Estimator resolves requests against the catalog and applies the configured
// split and confirmation thresholds.
type Estimator struct {
	catalog         catalog.Catalog
	splitSuggestion int64
	splitSize       int64
	confirmCount    int
	confirmSize     int64
}

// New constructs an Estimator from configuration.
func New(cat catalog.Catalog, cfg *config.Config) *Estimator {
	return &Estimator{
		catalog:         cat,
		splitSuggestion: cfg.Downloads.SplitSuggestionBytes,
		splitSize:       cfg.Downloads.SplitSizeBytes,
		confirmCount:    cfg.Downloads.ConfirmFileCount,
		confirmSize:     cfg.Downloads.ConfirmSizeBytes,
	}
}

// Estimate resolves ids and totals the files that exist on disk. Missing
// files appear in PerFile with Exists=false but are excluded from the totals.
func (e *Estimator) Estimate(ctx context.Context, ids []string) (Estimate, error) {
	infos, err := e.catalog.Resolve(ctx, ids)
	if err != nil {
		return Estimate{}, fmt.Errorf("resolve request: %w", err)
	}

	estimate := Estimate{PerFile: make([]PerFile, 0, len(infos))}
	for _, info := range infos {
		exists := fileutil.FileExists(info.AbsolutePath)
		size := info.SizeBytes
		if exists && size == 0 {
			size = fileutil.FileSize(info.AbsolutePath)
		}
		estimate.PerFile = append(estimate.PerFile, PerFile{
			ID:     info.ID,
			Name:   info.DisplayName,
			Path:   info.AbsolutePath,
			Size:   size,
			Exists: exists,
		})
		if !exists {
			continue
		}
		estimate.FileCount++
		estimate.TotalSizeBytes += size
	}

	estimate.SuggestSplit = estimate.TotalSizeBytes > e.splitSuggestion
	estimate.EstimatedParts = 1
	if estimate.SuggestSplit && e.splitSize > 0 {
		estimate.EstimatedParts = int((estimate.TotalSizeBytes + e.splitSize - 1) / e.splitSize)
		if estimate.EstimatedParts < 1 {
			estimate.EstimatedParts = 1
		}
	}
	estimate.NeedsConfirmation = estimate.FileCount > e.confirmCount ||
		estimate.TotalSizeBytes > e.confirmSize

	return estimate, nil
}
