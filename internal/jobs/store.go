package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bindery/internal/config"
)

// Store manages download job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the jobs database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	return OpenPath(dbPath)
}

// OpenPath connects to the jobs database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the jobs database.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new job. A missing ID is assigned; CreatedAt/UpdatedAt are
// stamped. The job's Status must already be set (normally StatusPending).
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	fileIDs, err := json.Marshal(job.FileIDs)
	if err != nil {
		return fmt.Errorf("marshal file ids: %w", err)
	}
	outputParts, err := marshalStrings(job.OutputParts)
	if err != nil {
		return err
	}
	skipped, err := marshalSkipped(job.SkippedFiles)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO download_jobs (
            id, user_id, kind, file_ids, content_key, status,
            total_files, processed_files, total_size_bytes,
            output_file_name, output_parts, split_enabled, split_size_bytes,
            skipped_files, error_message, created_at, updated_at,
            started_at, completed_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.UserID,
		string(job.Kind),
		string(fileIDs),
		job.ContentKey,
		string(job.Status),
		job.TotalFiles,
		job.ProcessedFiles,
		job.TotalSizeBytes,
		nullableString(job.OutputFileName),
		outputParts,
		boolToInt(job.SplitEnabled),
		job.SplitSizeBytes,
		skipped,
		nullableString(job.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		nullableTime(job.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier. Returns ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM download_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job's mutable fields.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	outputParts, err := marshalStrings(job.OutputParts)
	if err != nil {
		return err
	}
	skipped, err := marshalSkipped(job.SkippedFiles)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE download_jobs
         SET status = ?, total_files = ?, processed_files = ?, total_size_bytes = ?,
             output_file_name = ?, output_parts = ?, skipped_files = ?, error_message = ?,
             updated_at = ?, started_at = ?, completed_at = ?, expires_at = ?
         WHERE id = ?`,
		string(job.Status),
		job.TotalFiles,
		job.ProcessedFiles,
		job.TotalSizeBytes,
		nullableString(job.OutputFileName),
		outputParts,
		skipped,
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		nullableTime(job.ExpiresAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateProgress records how many files the builder has worked through.
func (s *Store) UpdateProgress(ctx context.Context, id string, processed int) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET processed_files = ?, updated_at = ? WHERE id = ?`,
		processed,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM download_jobs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = string(status)
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// CountActiveForUser counts the user's jobs in pending or preparing. The
// orchestrator rejects new builds while this is non-zero.
func (s *Store) CountActiveForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM download_jobs WHERE user_id = ? AND status IN (?, ?)`,
		userID,
		string(StatusPending),
		string(StatusPreparing),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// FindReusable returns the newest unexpired ready/completed job whose content
// key matches, or nil. The caller must still verify the job's output parts
// exist on disk before serving it; the record alone is not proof.
func (s *Store) FindReusable(ctx context.Context, contentKey string, now time.Time) (*Job, error) {
	if contentKey == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM download_jobs
         WHERE content_key = ? AND status IN (?, ?) AND expires_at IS NOT NULL AND expires_at > ?
         ORDER BY created_at DESC LIMIT 1`,
		contentKey,
		string(StatusReady),
		string(StatusCompleted),
		now.UTC().Format(time.RFC3339Nano),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reusable job: %w", err)
	}
	return job, nil
}

// Remove deletes a job record by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM download_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const jobColumns = "id, user_id, kind, file_ids, content_key, status, total_files, processed_files, total_size_bytes, output_file_name, output_parts, split_enabled, split_size_bytes, skipped_files, error_message, created_at, updated_at, started_at, completed_at, expires_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id             string
		userID         string
		kind           string
		fileIDsRaw     string
		contentKey     string
		statusStr      string
		totalFiles     int
		processedFiles int
		totalSize      int64
		outputName     sql.NullString
		outputPartsRaw sql.NullString
		splitEnabled   int
		splitSize      int64
		skippedRaw     sql.NullString
		errorMessage   sql.NullString
		createdRaw     string
		updatedRaw     string
		startedRaw     sql.NullString
		completedRaw   sql.NullString
		expiresRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&kind,
		&fileIDsRaw,
		&contentKey,
		&statusStr,
		&totalFiles,
		&processedFiles,
		&totalSize,
		&outputName,
		&outputPartsRaw,
		&splitEnabled,
		&splitSize,
		&skippedRaw,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		UserID:         userID,
		Kind:           Kind(kind),
		ContentKey:     contentKey,
		Status:         Status(statusStr),
		TotalFiles:     totalFiles,
		ProcessedFiles: processedFiles,
		TotalSizeBytes: totalSize,
		OutputFileName: outputName.String,
		SplitEnabled:   splitEnabled != 0,
		SplitSizeBytes: splitSize,
		ErrorMessage:   errorMessage.String,
	}

	if err := json.Unmarshal([]byte(fileIDsRaw), &job.FileIDs); err != nil {
		return nil, fmt.Errorf("decode file ids: %w", err)
	}
	if outputPartsRaw.Valid && outputPartsRaw.String != "" {
		if err := json.Unmarshal([]byte(outputPartsRaw.String), &job.OutputParts); err != nil {
			return nil, fmt.Errorf("decode output parts: %w", err)
		}
	}
	if skippedRaw.Valid && skippedRaw.String != "" {
		if err := json.Unmarshal([]byte(skippedRaw.String), &job.SkippedFiles); err != nil {
			return nil, fmt.Errorf("decode skipped files: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.CompletedAt = parseNullableTime(completedRaw)
	job.ExpiresAt = parseNullableTime(expiresRaw)

	return job, nil
}

func marshalStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func marshalSkipped(values []SkippedFile) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal skipped files: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
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
