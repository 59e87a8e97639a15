package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"bindery/internal/logging"
	"bindery/internal/textutil"
)

// SkipReasonNotFound is recorded for files that fail the existence probe.
const SkipReasonNotFound = "not found on disk"

// ErrNoFilesAdded indicates every requested file was skipped; the bundle is a
// failure, not an empty archive.
var ErrNoFilesAdded = errors.New("no files could be added to the archive")

// ErrCancelled indicates the build observed a cancellation request between
// files and stopped. The caller removes whatever output was written.
var ErrCancelled = errors.New("archive build cancelled")

// Input is one resolved file to bundle.
type Input struct {
	ID   string
	Path string
	Name string
}

// Skip records one input that could not be bundled.
type Skip struct {
	ID     string
	Name   string
	Reason string
}

// Result reports what a build produced.
type Result struct {
	Parts             []string
	TotalBytesWritten int64
	FilesAdded        int
	Skipped           []Skip
}

// Options configures a Builder.
type Options struct {
	// OutputDir is the job-scoped directory parts are written into.
	OutputDir string
	// BaseName names the bundle: "<base>.zip" for a single part,
	// "<base> Part <N>.zip" when splitting produced more than one.
	BaseName string
	// SplitEnabled bounds each part to SplitSizeBytes. A single file larger
	// than the cap still goes into its own oversized part; a ZIP entry
	// cannot meaningfully span parts.
	SplitEnabled   bool
	SplitSizeBytes int64
	// Cancelled is polled once per file. Nil means never cancelled.
	Cancelled func() bool
	// Progress receives the number of inputs handled so far (added or
	// skipped). Nil disables progress reporting.
	Progress func(processed int)

	Logger *slog.Logger
}

// Builder writes size-bounded store-only ZIP parts.
type Builder struct {
	opts     Options
	logger   *slog.Logger
	collator *collate.Collator
}

// New constructs a Builder.
func New(opts Options) *Builder {
	return &Builder{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "archive"),
		// Numeric collation keeps "Issue 2" ahead of "Issue 10" so part
		// contents match shelf order.
		collator: collate.New(language.Und, collate.Numeric, collate.IgnoreCase),
	}
}

// Build bundles files into parts under OutputDir. Inputs are processed in
// display-name order for reproducible output regardless of request order.
func (b *Builder) Build(ctx context.Context, files []Input) (*Result, error) {
	if b.opts.OutputDir == "" {
		return nil, errors.New("archive output directory not set")
	}
	if err := os.MkdirAll(b.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	ordered := make([]Input, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return b.collator.CompareString(ordered[i].Name, ordered[j].Name) < 0
	})

	result := &Result{}
	entryNames := make(map[string]struct{}, len(ordered))
	var current *part

	finalizeCurrent := func() error {
		if current == nil {
			return nil
		}
		path, size, err := current.finalize()
		current = nil
		if err != nil {
			return err
		}
		result.Parts = append(result.Parts, path)
		result.TotalBytesWritten += size
		return nil
	}

	for i, file := range ordered {
		if err := ctx.Err(); err != nil {
			b.discard(current)
			return nil, ErrCancelled
		}
		if b.opts.Cancelled != nil && b.opts.Cancelled() {
			b.discard(current)
			return nil, ErrCancelled
		}

		info, err := os.Stat(file.Path)
		if err != nil || !info.Mode().IsRegular() {
			result.Skipped = append(result.Skipped, Skip{ID: file.ID, Name: file.Name, Reason: SkipReasonNotFound})
			b.logger.Warn("skipping missing file",
				logging.String("file_id", file.ID),
				logging.String("name", file.Name),
			)
			b.reportProgress(i + 1)
			continue
		}

		if b.opts.SplitEnabled && current != nil && current.entries > 0 &&
			current.size+info.Size() > b.opts.SplitSizeBytes {
			if err := finalizeCurrent(); err != nil {
				return nil, err
			}
		}

		if current == nil {
			current, err = b.openPart(len(result.Parts) + 1)
			if err != nil {
				return nil, err
			}
		}

		entryName := textutil.UniqueName(b.entryName(file), entryNames)
		if err := current.add(entryName, file.Path, info); err != nil {
			result.Skipped = append(result.Skipped, Skip{ID: file.ID, Name: file.Name, Reason: err.Error()})
			b.logger.Warn("skipping unreadable file",
				logging.String("file_id", file.ID),
				logging.String("name", file.Name),
				logging.Error(err),
			)
			b.reportProgress(i + 1)
			continue
		}

		result.FilesAdded++
		b.reportProgress(i + 1)
	}

	if err := finalizeCurrent(); err != nil {
		return nil, err
	}

	if result.FilesAdded == 0 {
		return nil, ErrNoFilesAdded
	}

	if err := b.applyPartNaming(result); err != nil {
		return nil, err
	}

	return result, nil
}

// entryName flattens the file to its display name so archives have a flat,
// portable layout. Files whose display name lacks an extension inherit the
// source file's.
func (b *Builder) entryName(file Input) string {
	name := textutil.SanitizeFileName(file.Name)
	if name == "" {
		name = filepath.Base(file.Path)
	}
	if filepath.Ext(name) == "" {
		if ext := filepath.Ext(file.Path); ext != "" {
			name += ext
		}
	}
	return name
}

// openPart creates the next part file. Parts are written under provisional
// numbered names; applyPartNaming collapses a lone part to "<base>.zip".
func (b *Builder) openPart(number int) (*part, error) {
	name := fmt.Sprintf("%s Part %d.zip", b.opts.BaseName, number)
	path := filepath.Join(b.opts.OutputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive part: %w", err)
	}
	b.logger.Debug("opened archive part", logging.Int(logging.FieldPart, number), logging.String("path", path))
	return &part{file: file, zw: zip.NewWriter(file), path: path}, nil
}

func (b *Builder) applyPartNaming(result *Result) error {
	if len(result.Parts) != 1 {
		return nil
	}
	single := filepath.Join(b.opts.OutputDir, b.opts.BaseName+".zip")
	if result.Parts[0] == single {
		return nil
	}
	if err := os.Rename(result.Parts[0], single); err != nil {
		return fmt.Errorf("rename single part: %w", err)
	}
	result.Parts[0] = single
	return nil
}

func (b *Builder) discard(current *part) {
	if current == nil {
		return
	}
	_ = current.zw.Close()
	_ = current.file.Close()
	_ = os.Remove(current.path)
}

func (b *Builder) reportProgress(processed int) {
	if b.opts.Progress != nil {
		b.opts.Progress(processed)
	}
}

// part is one open ZIP part. Only one part is open at any moment.
type part struct {
	file    *os.File
	zw      *zip.Writer
	path    string
	size    int64
	entries int
}

// add stores one file in the part. Store method only; no recompression.
func (p *part) add(entryName, srcPath string, info os.FileInfo) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:     entryName,
		Method:   zip.Store,
		Modified: info.ModTime(),
	}
	writer, err := p.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive entry: %w", err)
	}

	written, err := io.Copy(writer, src)
	p.size += written
	if err != nil {
		return fmt.Errorf("write archive entry: %w", err)
	}
	p.entries++
	return nil
}

// finalize closes the ZIP stream and fsyncs the part before the next part may
// open. Returns the part path and its final on-disk size.
func (p *part) finalize() (string, int64, error) {
	if err := p.zw.Close(); err != nil {
		_ = p.file.Close()
		return "", 0, fmt.Errorf("close archive writer: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		_ = p.file.Close()
		return "", 0, fmt.Errorf("sync archive part: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return "", 0, fmt.Errorf("close archive part: %w", err)
	}
	info, err := os.Stat(p.path)
	if err != nil {
		return "", 0, fmt.Errorf("stat archive part: %w", err)
	}
	return p.path, info.Size(), nil
}
